package models

import "time"

// Conversation is the canonical, fixed-schema form of a HiBot conversation
// record. Every nullable column is a pointer; nil maps to SQL NULL. Column
// order in ColumnNames matches the conversations table exactly.
type Conversation struct {
	ID                string     `json:"id"`
	Typing            *string    `json:"typing"`
	Created           *time.Time `json:"created"`
	Closed            *time.Time `json:"closed"`
	Delegated         *time.Time `json:"delegated"`
	Assigned          *time.Time `json:"assigned"`
	AttentionTime     *time.Time `json:"attention_time"`
	DurationMs        *int64     `json:"duration_ms"`
	WaitTimeMs        *int64     `json:"wait_time_ms"`
	AnswerTimeMs      *int64     `json:"answer_time_ms"`
	Note              *string    `json:"note"`
	Status            *string    `json:"status"`
	AgentName         *string    `json:"agent_name"`
	ChannelType       *string    `json:"channel_type"`
	CampaignName      *string    `json:"campaign_name"`
	DynamicField      *string    `json:"dynamic_field"`
	ExternalReference *string    `json:"external_reference"`
}

// ColumnNames lists the persisted columns in insert order. last_synced_at is
// server-managed and intentionally absent.
func ColumnNames() []string {
	return []string{
		"id",
		"typing",
		"created",
		"closed",
		"delegated",
		"assigned",
		"attention_time",
		"duration_ms",
		"wait_time_ms",
		"answer_time_ms",
		"note",
		"status",
		"agent_name",
		"channel_type",
		"campaign_name",
		"dynamic_field",
		"external_reference",
	}
}

// Values returns the column values in the same order as ColumnNames.
func (c *Conversation) Values() []any {
	return []any{
		c.ID,
		c.Typing,
		c.Created,
		c.Closed,
		c.Delegated,
		c.Assigned,
		c.AttentionTime,
		c.DurationMs,
		c.WaitTimeMs,
		c.AnswerTimeMs,
		c.Note,
		c.Status,
		c.AgentName,
		c.ChannelType,
		c.CampaignName,
		c.DynamicField,
		c.ExternalReference,
	}
}
