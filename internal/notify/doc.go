// Package notify delivers "building disarmed at check time" alerts.
//
// Senders publish to MQTT, POST to a webhook or just log; Multi fans an
// alert out to several of them.
package notify
