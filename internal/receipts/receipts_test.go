package receipts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-runtime/server/internal/message"
)

func TestAutoUpgrade_PromotesMostRecentDelivered(t *testing.T) {
	hist := message.History{
		"P": {
			{ID: "1", Type: message.TypeSent, Receipt: message.ReceiptDelivered},
		},
	}
	upg := AutoUpgrade(hist, "P")
	require.NotNil(t, upg)
	assert.Equal(t, "1", upg.Label)
	assert.Equal(t, message.ReceiptRead, hist["P"][0].Receipt)
}

func TestAutoUpgrade_StopsAtFirstSentEvenIfAlreadyRead(t *testing.T) {
	hist := message.History{
		"P": {
			{ID: "1", Type: message.TypeSent, Receipt: message.ReceiptDelivered},
			{ID: "2", Type: message.TypeSent, Receipt: message.ReceiptRead},
		},
	}
	upg := AutoUpgrade(hist, "P")
	assert.Nil(t, upg)
	assert.Equal(t, message.ReceiptDelivered, hist["P"][0].Receipt)
}

func TestAutoUpgrade_NoSentMessage(t *testing.T) {
	hist := message.History{"P": {{ID: "1", Type: message.TypeReceived}}}
	assert.Nil(t, AutoUpgrade(hist, "P"))
}

func TestExplicitUpgrade_FindsByLabel(t *testing.T) {
	hist := message.History{
		"P": {{ID: "1", Label: "lbl", Receipt: message.ReceiptSent}},
	}
	labeled := map[string]message.Message{}
	upg := ExplicitUpgrade(hist, labeled, "lbl", message.ReceiptRead)
	require.NotNil(t, upg)
	assert.Equal(t, "P", upg.ChatID)
	assert.Equal(t, message.ReceiptRead, hist["P"][0].Receipt)
	assert.Equal(t, message.ReceiptRead, labeled["lbl"].Receipt)
}

func TestExplicitUpgrade_MissingLabel(t *testing.T) {
	hist := message.History{"P": {{ID: "1", Label: "other"}}}
	assert.Nil(t, ExplicitUpgrade(hist, nil, "missing", message.ReceiptRead))
}

func TestUpgradeOnLoad_PromotesAdjacentPairs(t *testing.T) {
	hist := message.History{
		"P": {
			{ID: "1", Type: message.TypeSent, Receipt: message.ReceiptDelivered},
			{ID: "2", Type: message.TypeReceived},
			{ID: "3", Type: message.TypeSent, Receipt: message.ReceiptDelivered},
			{ID: "4", Type: message.TypeReceived},
		},
	}
	upgrades := UpgradeOnLoad(hist)
	assert.Len(t, upgrades, 2)
	assert.Equal(t, message.ReceiptRead, hist["P"][0].Receipt)
	assert.Equal(t, message.ReceiptRead, hist["P"][2].Receipt)
}

func TestUpgradeOnLoad_NoReceivedMessagesNoOp(t *testing.T) {
	hist := message.History{"P": {{ID: "1", Type: message.TypeSent, Receipt: message.ReceiptDelivered}}}
	assert.Empty(t, UpgradeOnLoad(hist))
}
