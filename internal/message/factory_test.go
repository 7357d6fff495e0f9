package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-runtime/server/internal/tagparser"
)

func build(text string, tags []string) Message {
	return Build(BuildInput{
		Text: text,
		Tags: tagparser.Parse(tags),
		Now:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

func TestBuild_DefaultTextMessage(t *testing.T) {
	m := build("Hello", []string{"speaker:Pat", "type:received"})
	assert.Equal(t, KindText, m.Kind)
	assert.Equal(t, "Hello", m.Text)
	assert.Equal(t, TypeReceived, m.Type)
	assert.Equal(t, ReceiptNone, m.Receipt)
}

func TestBuild_SentDefaultsToDelivered(t *testing.T) {
	m := build("Hi", []string{"type:sent"})
	assert.Equal(t, ReceiptDelivered, m.Receipt)
}

func TestBuild_PriorityAudioOverImage(t *testing.T) {
	m := build("", []string{"audio:a.mp3", "image:b.png", "transcript:hey there"})
	assert.Equal(t, KindAudio, m.Kind)
	assert.Equal(t, "a.mp3", m.AudioSrc)
}

func TestBuild_PriorityImageOverAttachment(t *testing.T) {
	m := build("caption", []string{"image:b.png", "attachment:c.pdf"})
	assert.Equal(t, KindImage, m.Kind)
	assert.Equal(t, "b.png", m.ImageSrc)
}

func TestBuild_PriorityAttachmentOverLink(t *testing.T) {
	m := build("caption", []string{"attachment:c.pdf", "linkUrl:http://x"})
	assert.Equal(t, KindAttachment, m.Kind)
}

func TestBuild_LinkWithTextEmbeds(t *testing.T) {
	m := build("check this out", []string{"linkUrl:http://x", "linkTitle:X"})
	assert.Equal(t, KindText, m.Kind)
	require.NotNil(t, m.LinkPreviewEmbedded)
	assert.Equal(t, "http://x", m.LinkPreviewEmbedded.URL)
}

func TestBuild_LinkWithoutTextStandalone(t *testing.T) {
	m := build("", []string{"linkUrl:http://x"})
	assert.Equal(t, KindLinkPreview, m.Kind)
	require.NotNil(t, m.LinkPreview)
}

func TestBuild_AudioExplicitDuration(t *testing.T) {
	m := build("", []string{"audio:a.mp3", "duration:10", "transcript:hi"})
	assert.Equal(t, 10, m.Duration)
}

func TestBuild_AudioEstimatedDurationIsDeterministic(t *testing.T) {
	m1 := build("", []string{"audio:a.mp3", "transcript:a fairly long transcript goes here for timing"})
	m2 := build("", []string{"audio:a.mp3", "transcript:a fairly long transcript goes here for timing"})
	assert.Equal(t, m1.Duration, m2.Duration)
	assert.GreaterOrEqual(t, m1.Duration, minDurationSeconds)
}

func TestBuild_AudioDurationFloor(t *testing.T) {
	m := build("", []string{"audio:a.mp3", "transcript:hi"})
	assert.GreaterOrEqual(t, m.Duration, minDurationSeconds)
}

func TestBuild_QuoteRefResolves(t *testing.T) {
	referenced := Message{Speaker: "Pat", Kind: KindText, Text: "original"}
	m := Build(BuildInput{
		Text:            "replying",
		Tags:            tagparser.Parse([]string{"quoteRef:m1"}),
		Now:             time.Now(),
		LabeledMessages: map[string]Message{"m1": referenced},
	})
	require.NotNil(t, m.Quote)
	assert.Equal(t, "Pat", m.Quote.Speaker)
	assert.Equal(t, "original", m.Quote.Text)
}

func TestBuild_QuoteRefUnresolvedLeavesNilQuote(t *testing.T) {
	m := Build(BuildInput{
		Text: "replying",
		Tags: tagparser.Parse([]string{"quoteRef:missing"}),
		Now:  time.Now(),
	})
	assert.Nil(t, m.Quote)
}

func TestEstimateDuration_ScalesWithWordCount(t *testing.T) {
	short := EstimateDuration("one two three")
	long := EstimateDuration("one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty")
	assert.Greater(t, long, short)
}
