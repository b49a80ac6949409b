package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is empty, it returns an empty Attr.
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// Label records a notification type label under the key "label".
func Label(label string) slog.Attr {
	return slog.String("label", label)
}

// Channel records a delivery channel under the key "channel".
func Channel(channel string) slog.Attr {
	return slog.String("channel", channel)
}

// Signal records an observation signal under the key "signal".
func Signal(signal string) slog.Attr {
	return slog.String("signal", signal)
}
