// Package mail provides the outbound email transport used by the
// notification dispatch engine: a Sender interface with plain-text and
// multipart (text + HTML) delivery, a Postmark-backed implementation, a
// development sender that dumps messages to disk, and a CSS inliner for
// HTML bodies.
//
// # Usage
//
//	sender := mail.MustNewPostmarkSender(cfg)
//	err := sender.SendMultipart(ctx, mail.Message{
//	    From:    "noreply@example.com",
//	    To:      []string{"user@example.com"},
//	    Subject: "[example.com] You have a new follower",
//	    Text:    textBody,
//	    HTML:    htmlBody,
//	})
package mail
