package enums

import "fmt"

// RecoveryEventType describes the allowed values for the `event_type` column in cart_recovery_logs.
type RecoveryEventType string

const (
	RecoveryEventTypeEmailSent      RecoveryEventType = "email_sent"
	RecoveryEventTypeEmailDelivered RecoveryEventType = "email_delivered"
	RecoveryEventTypeEmailOpened    RecoveryEventType = "email_opened"
	RecoveryEventTypeEmailClicked   RecoveryEventType = "email_clicked"
	RecoveryEventTypeEmailBounced   RecoveryEventType = "email_bounced"
	RecoveryEventTypeCartRecovered  RecoveryEventType = "cart_recovered"
)

var validRecoveryEventTypes = []RecoveryEventType{
	RecoveryEventTypeEmailSent,
	RecoveryEventTypeEmailDelivered,
	RecoveryEventTypeEmailOpened,
	RecoveryEventTypeEmailClicked,
	RecoveryEventTypeEmailBounced,
	RecoveryEventTypeCartRecovered,
}

// String implements fmt.Stringer.
func (r RecoveryEventType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RecoveryEventType.
func (r RecoveryEventType) IsValid() bool {
	for _, candidate := range validRecoveryEventTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRecoveryEventType converts raw input into a RecoveryEventType.
func ParseRecoveryEventType(value string) (RecoveryEventType, error) {
	for _, candidate := range validRecoveryEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recovery event type %q", value)
}
