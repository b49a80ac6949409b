// Package logger provides a small factory over log/slog plus attribute
// helpers with stable keys used across the module.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithLevel(slog.LevelDebug),
//	    logger.WithFormat(logger.FormatText),
//	)
//	log.LogAttrs(ctx, slog.LevelInfo, "Notice stored",
//	    logger.UserID(user.ID),
//	    logger.Label("friends_invite"),
//	)
package logger
