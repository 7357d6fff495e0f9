// Package receipts implements the single receipt-mutation point for the
// conversation runtime: auto-upgrading a chat's most recent sent/delivered
// message to read when a new received message arrives, and explicit
// label-addressed upgrades driven by a `receipt:status:label` tag.
package receipts

import "conversation-runtime/server/internal/message"

// Upgrade is the `_receiptChanged` signal emitted by every mutation,
// consumed once per cycle by the host to notify the UI without
// re-emitting the whole message.
type Upgrade struct {
	ChatID  string
	Label   string // the upgraded message's id
	Receipt message.Receipt
}

// AutoUpgrade walks chatID's history backwards looking for the most recent
// sent message with receipt delivered, and promotes it to read. It stops at
// the first sent message regardless of whether an upgrade occurred — older
// sent messages are considered already settled. history is mutated in
// place; nil is returned if no upgrade happened.
func AutoUpgrade(history message.History, chatID string) *Upgrade {
	msgs := history[chatID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type != message.TypeSent {
			continue
		}
		if msgs[i].Receipt == message.ReceiptDelivered {
			msgs[i].Receipt = message.ReceiptRead
			return &Upgrade{ChatID: chatID, Label: msgs[i].ID, Receipt: message.ReceiptRead}
		}
		return nil
	}
	return nil
}

// ExplicitUpgrade scans every chat for the first message whose Label
// matches label, upgrades its receipt to status, and keeps the
// labeledMessages registry consistent with the mutated copy. Returns nil
// if no message carries that label.
func ExplicitUpgrade(history message.History, labeledMessages map[string]message.Message, label string, status message.Receipt) *Upgrade {
	for chatID, msgs := range history {
		for i := range msgs {
			if msgs[i].Label != label {
				continue
			}
			msgs[i].Receipt = status
			if labeledMessages != nil {
				labeledMessages[label] = msgs[i]
			}
			return &Upgrade{ChatID: chatID, Label: label, Receipt: status}
		}
	}
	return nil
}

// UpgradeOnLoad applies the auto-upgrade rule across an entire restored
// history: for every adjacent (sent/delivered, received) pair within the
// same chat, the sent message is promoted to read. Returns every upgrade
// that occurred, in message order within each chat; the order across
// chats is not defined.
func UpgradeOnLoad(history message.History) []Upgrade {
	var upgrades []Upgrade
	for chatID, msgs := range history {
		for i := 1; i < len(msgs); i++ {
			if msgs[i].Type != message.TypeReceived {
				continue
			}
			prev := i - 1
			if msgs[prev].Type == message.TypeSent && msgs[prev].Receipt == message.ReceiptDelivered {
				msgs[prev].Receipt = message.ReceiptRead
				upgrades = append(upgrades, Upgrade{ChatID: chatID, Label: msgs[prev].ID, Receipt: message.ReceiptRead})
			}
		}
	}
	return upgrades
}
