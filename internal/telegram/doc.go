// Package telegram is the inbound trigger: it parses Bot API webhook updates,
// drops duplicate deliveries, serialises work per chat and sends the
// assistant's replies (text and generated invoice documents) back.
package telegram
