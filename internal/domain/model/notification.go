package model

// NotificationReport summarizes fan-out delivery to administrators.
type NotificationReport struct {
	Delivered int
	Failed    int
}
