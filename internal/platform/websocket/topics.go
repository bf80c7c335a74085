package websocket

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutrio/nutrio/internal/platform/auth"
)

const notificationsPrefix = "notifications:"

var tableTopicPattern = regexp.MustCompile(`^table:([a-z_]+):([a-z_]+)=([A-Za-z0-9-]+)$`)

// PatientAuthorizer reports whether the caller in ctx may read the patient's
// rows.
type PatientAuthorizer func(ctx context.Context, patientID uuid.UUID) bool

// NotificationsTopic is the per-user inbox topic.
func NotificationsTopic(userID string) string {
	return notificationsPrefix + userID
}

// TableTopic is the change topic for rows of table whose column equals value,
// e.g. table:meal:patient_id=<uuid>.
func TableTopic(table, column, value string) string {
	return fmt.Sprintf("table:%s:%s=%s", table, column, value)
}

// CanSubscribe reports whether topic is well formed for userID. Users only ever
// see their own notifications topic. Table topics additionally pass
// tableTopicAllowed before the hub joins them.
func CanSubscribe(userID, topic string) bool {
	if strings.HasPrefix(topic, notificationsPrefix) {
		return userID != "" && topic == NotificationsTopic(userID)
	}
	return tableTopicPattern.MatchString(topic)
}

// tableTopicAllowed scopes a table topic to rows the caller owns. Topics keyed
// by nutritionist_id belong to that nutritionist; topics keyed by patient_id
// are checked with canSeePatient. Any other key is refused.
func tableTopicAllowed(ctx context.Context, userID, topic string, canSeePatient PatientAuthorizer) bool {
	m := tableTopicPattern.FindStringSubmatch(topic)
	if m == nil {
		return false
	}
	switch column, value := m[2], m[3]; column {
	case "nutritionist_id":
		return value == userID || auth.RoleFromContext(ctx) == auth.RoleAdmin
	case "patient_id":
		id, err := uuid.Parse(value)
		if err != nil || canSeePatient == nil {
			return false
		}
		return canSeePatient(ctx, id)
	}
	return false
}

// PublishTableChange emits a change event for one row on its table topic.
func PublishTableChange(ctx context.Context, p Publisher, action, table, column, value, recordID string) error {
	if p == nil {
		return nil
	}
	topic := TableTopic(table, column, value)
	return p.Publish(ctx, Event{
		Type:      action,
		Topic:     topic,
		Table:     table,
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
	})
}
