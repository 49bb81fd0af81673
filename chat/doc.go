// Package chat answers questions over the article index.
//
// A Service retrieves the chunks most similar to a query, assembles a prompt
// from a fixed system instruction, the retrieved context and the session's
// history, and streams the model's answer back as a Turn. The user question
// and the complete answer are appended to the session history only when
// the stream finishes without error. Turns on the same session id are
// serialised.
package chat
