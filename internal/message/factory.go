package message

import (
	"encoding/binary"
	"crypto/sha256"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"conversation-runtime/server/internal/tagparser"
)

// wordsPerSecond is the speech-rate estimate used when an audio message
// carries no explicit duration tag.
const wordsPerSecond = 2.3

// minDurationSeconds is the floor applied after jitter.
const minDurationSeconds = 2

// jitterFraction is the maximum +/- proportion applied to the raw
// word-count estimate, seeded deterministically from the transcript so
// repeated calls on the same transcript return the same duration.
const jitterFraction = 0.15

// BuildInput is everything the factory needs to construct a Message from
// one chunk.
type BuildInput struct {
	Text            string
	Tags            *tagparser.Context
	Now             time.Time
	LabeledMessages map[string]Message // label -> message, for quote-ref resolution
	Logger          *slog.Logger
}

// Build selects a Message variant from trimmed chunk text and parsed tags,
// in priority order audio > image > attachment > linkUrl > text, and
// applies the auto-default rules (receipt, duration, quote resolution).
func Build(in BuildInput) Message {
	t := in.Tags

	msg := Message{
		ID:        uuid.New().String(),
		Speaker:   t.Get("speaker"),
		Time:      t.Get("time"),
		Date:      t.Get("date"),
		Timestamp: in.Now,
		Label:     t.Get("label"),
		Type:      resolveType(t.Get("type")),
	}

	switch {
	case t.Has("audio"):
		buildAudio(&msg, t)
	case t.Has("image"):
		buildImage(&msg, t)
	case t.Has("attachment"):
		buildAttachment(&msg, t)
	case t.Has("linkUrl"):
		buildLink(&msg, in.Text, t)
	default:
		buildText(&msg, in.Text, t)
	}

	msg.Receipt = resolveReceipt(msg.Type, t)
	resolveQuote(&msg, in)

	return msg
}

func resolveType(raw string) Type {
	switch Type(raw) {
	case TypeSent, TypeReceived, TypeSystem:
		return Type(raw)
	default:
		return TypeReceived
	}
}

// resolveReceipt applies the receipt invariant: sent defaults to
// delivered and may only ever be sent/delivered/read; received/system are
// always none, except for an explicit `receipt:status` tag on a sent
// message.
func resolveReceipt(t Type, tags *tagparser.Context) Receipt {
	if t != TypeSent {
		return ReceiptNone
	}
	if explicit := tags.Receipt; explicit != "" {
		switch Receipt(explicit) {
		case ReceiptSent, ReceiptDelivered, ReceiptRead:
			return Receipt(explicit)
		}
	}
	return ReceiptDelivered
}

func buildAudio(msg *Message, t *tagparser.Context) {
	msg.Kind = KindAudio
	msg.AudioSrc = t.Get("audio")
	msg.Transcript = t.Get("transcript")
	if msg.Transcript == "" {
		msg.Transcript = t.Get("text")
	}

	if raw := t.Get("duration"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			msg.Duration = n
			return
		}
	}
	msg.Duration = EstimateDuration(msg.Transcript)
}

func buildImage(msg *Message, t *tagparser.Context) {
	msg.Kind = KindImage
	msg.ImageSrc = t.Get("image")
	msg.Caption = t.Get("text")
}

func buildAttachment(msg *Message, t *tagparser.Context) {
	msg.Kind = KindAttachment
	msg.AttachmentSrc = t.Get("attachment")
	msg.Caption = t.Get("text")
}

func buildLink(msg *Message, text string, t *tagparser.Context) {
	preview := &LinkPreview{
		URL:         t.Get("linkUrl"),
		Domain:      t.Get("linkDomain"),
		Title:       t.Get("linkTitle"),
		Description: t.Get("linkDesc"),
		Image:       t.Get("linkImage"),
		Layout:      t.Get("linkLayout"),
		IsVideo:     t.Has("linkVideo"),
	}

	if strings.TrimSpace(text) != "" {
		msg.Kind = KindText
		msg.Text = text
		msg.LinkPreviewEmbedded = preview
		msg.NotificationPreview = t.Get("notificationPreview")
		return
	}

	msg.Kind = KindLinkPreview
	msg.LinkPreview = preview
}

func buildText(msg *Message, text string, t *tagparser.Context) {
	msg.Kind = KindText
	msg.Text = text
	msg.NotificationPreview = t.Get("notificationPreview")
}

// EstimateDuration derives an audio duration in seconds from a transcript
// at ~2.3 words/sec, with a deterministic hash-based jitter of up to +/-15%
// and a floor of 2 seconds. The jitter is a pure function of the
// transcript text, so repeated calls are idempotent.
func EstimateDuration(transcript string) int {
	words := len(strings.Fields(transcript))
	base := float64(words) / wordsPerSecond

	sum := sha256.Sum256([]byte(transcript))
	seed := binary.BigEndian.Uint64(sum[:8])
	unit := float64(seed%10000) / 10000.0 // [0, 1)
	jitter := (unit*2 - 1) * jitterFraction

	estimate := base * (1 + jitter)
	seconds := int(math.Round(estimate))
	if seconds < minDurationSeconds {
		return minDurationSeconds
	}
	return seconds
}

// resolveQuote fills msg.Quote when the chunk carries a quoteRef and no
// quote has already been attached; unresolved lookups are logged and the
// message proceeds with no quote.
func resolveQuote(msg *Message, in BuildInput) {
	if msg.Quote != nil {
		return
	}

	t := in.Tags
	ref := t.Get("quoteRef")
	if ref == "" {
		if literal := t.Get("quote"); literal != "" {
			msg.Quote = &QuotedContent{Speaker: t.Get("quoteFrom"), Text: literal}
		}
		return
	}

	referenced, ok := in.LabeledMessages[ref]
	if !ok {
		if in.Logger != nil {
			in.Logger.Warn("message: unresolved quote-ref", "ref", ref)
		}
		return
	}

	msg.Quote = &QuotedContent{
		Speaker: referenced.Speaker,
		Text:    visiblePayload(referenced),
	}
}

// visiblePayload returns the text a reader would see for referenced,
// regardless of kind, for embedding into a QuotedContent.
func visiblePayload(m Message) string {
	switch m.Kind {
	case KindText:
		return m.Text
	case KindImage:
		return m.ImageSrc
	case KindAudio:
		return m.Transcript
	case KindAttachment:
		return m.Caption
	case KindLinkPreview:
		if m.LinkPreview != nil {
			return m.LinkPreview.Title
		}
		return ""
	default:
		return ""
	}
}
