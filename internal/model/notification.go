package model

// NotificationKind names the outbound message sent for a reservation
// event.
type NotificationKind string

const (
	NotifyReceived     NotificationKind = "received"
	NotifyConfirmation NotificationKind = "confirmation"
	NotifyRejection    NotificationKind = "rejection"
	NotifyCancelled    NotificationKind = "cancelled"
	NotifyReminder     NotificationKind = "reminder"
	NotifyCompleted    NotificationKind = "completed"
	NotifyNoShow       NotificationKind = "no_show"
	NotifyReassigned   NotificationKind = "reassigned"
)
