// Package events provides a small generic broadcast hub used to fan out
// lifecycle transitions and health-check results to any number of
// subscribers.
//
// Publishing never blocks: each subscriber has a bounded buffer, and when a
// subscriber falls behind the oldest buffered event is dropped to make room
// for the newest. Subscribers that need a complete record should drain their
// channel promptly or size the buffer accordingly.
package events
