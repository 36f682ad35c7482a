package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/santyhornia-creator/hibot-etl-script/internal/models"
)

// RawConversation is a conversation document as returned by the HiBot API:
// arbitrarily nested, with fields that may be absent, renamed across API
// versions, or wrapped in the fields./.value envelope.
type RawConversation = map[string]any

// Flatten converts a nested document into a flat map keyed by dotted paths
// (agent -> name becomes "agent.name"). The "fields." prefix and ".value"
// suffix used by one provider response shape are stripped from every key.
func Flatten(doc RawConversation) map[string]any {
	flat := make(map[string]any, len(doc))
	flattenInto(flat, "", doc)
	return flat
}

func flattenInto(flat map[string]any, prefix string, doc map[string]any) {
	for key, value := range doc {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(flat, path, nested)
			continue
		}
		flat[cleanPath(path)] = value
	}
}

func cleanPath(path string) string {
	path = strings.ReplaceAll(path, "fields.", "")
	return strings.ReplaceAll(path, ".value", "")
}

// Normalize maps one raw document onto the canonical conversation shape.
// Every field degrades to null on absence or malformed input; it never
// fails. Timestamps arrive as UTC epoch milliseconds and are converted
// into loc. The direct status string wins over the nested status.name.
func Normalize(doc RawConversation, loc *time.Location) models.Conversation {
	flat := Flatten(doc)

	c := models.Conversation{}
	if id := stringAt(flat, "id"); id != nil {
		c.ID = *id
	}
	c.Typing = stringAt(flat, "typing")
	c.Created = timeAt(flat, loc, "created")
	c.Closed = timeAt(flat, loc, "closed")
	c.Delegated = timeAt(flat, loc, "delegated")
	c.Assigned = timeAt(flat, loc, "assigned")
	c.AttentionTime = timeAt(flat, loc, "attentionHour")
	c.DurationMs = int64At(flat, "duration")
	c.WaitTimeMs = int64At(flat, "waitTime")
	c.AnswerTimeMs = int64At(flat, "answerTime")
	c.Note = stringAt(flat, "note")
	c.Status = stringAt(flat, "status", "status.name")
	c.AgentName = stringAt(flat, "agent.name")
	c.ChannelType = stringAt(flat, "channel.type")
	c.CampaignName = stringAt(flat, "campaign.name")
	c.DynamicField = stringAt(flat, "Dinamico", "dinamico")
	c.ExternalReference = stringAt(flat, "numeroov", "numeroOv")
	return c
}

// NormalizeAll maps a batch of raw documents, preserving order. One row per
// input document, always; a malformed record yields a row of nulls rather
// than an error.
func NormalizeAll(docs []RawConversation, loc *time.Location) []models.Conversation {
	rows := make([]models.Conversation, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, Normalize(doc, loc))
	}
	return rows
}

// stringAt resolves the first of paths present in flat and representable as
// a string. Nil when no path resolves.
func stringAt(flat map[string]any, paths ...string) *string {
	for _, path := range paths {
		value, ok := flat[path]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			return &v
		case float64:
			s := strconv.FormatFloat(v, 'f', -1, 64)
			return &s
		case bool:
			s := strconv.FormatBool(v)
			return &s
		}
	}
	return nil
}

// int64At resolves the first of paths holding a numeric value, accepting
// JSON numbers and numeric strings. Nil on absence or malformed input.
func int64At(flat map[string]any, paths ...string) *int64 {
	for _, path := range paths {
		value, ok := flat[path]
		if !ok {
			continue
		}
		if n, ok := toEpochNumber(value); ok {
			return &n
		}
	}
	return nil
}

// timeAt resolves an epoch-millisecond field into a zoned timestamp.
func timeAt(flat map[string]any, loc *time.Location, paths ...string) *time.Time {
	ms := int64At(flat, paths...)
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).In(loc)
	return &t
}

// toEpochNumber coerces a raw JSON value to an integer. Strings are parsed
// leniently (whitespace trimmed, float syntax accepted); anything else is
// rejected rather than raised.
func toEpochNumber(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}
