package pipeline

import (
	"bytes"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/agenthands/insightflow/internal/core/model"
)

const (
	recordingFilename    = "session-audio.webm"
	recordingContentType = "audio/webm"

	msgNoContent = "No content to analyze. Please provide text or record audio."
	msgAmbiguous = "Provide either text or audio, not both."
)

// Input is one capture submitted to the pipeline. Exactly one of Text,
// Chunks or File carries content.
type Input struct {
	Title string
	Text  string
	// Chunks is a recording delivered as a sequence of blobs.
	Chunks [][]byte
	// File is an uploaded audio file.
	File *model.Audio
}

// capture is the resolved form of an Input.
type capture struct {
	title string
	text  string
	audio *model.Audio
}

func (in Input) resolve(titles Titles) (capture, *Error) {
	text := strings.TrimSpace(in.Text)
	audio := in.audio()

	switch {
	case text == "" && audio == nil:
		return capture{}, &Error{Kind: KindValidation, State: StateInput, Message: msgNoContent}
	case text != "" && audio != nil:
		return capture{}, &Error{Kind: KindValidation, State: StateInput, Message: msgAmbiguous}
	}

	c := capture{title: strings.TrimSpace(in.Title), text: text, audio: audio}
	if c.title == "" {
		if audio != nil {
			c.title = titles.Audio
		} else {
			c.title = titles.Text
		}
	}
	return c, nil
}

func (in Input) audio() *model.Audio {
	if in.File != nil && len(in.File.Data) > 0 {
		a := *in.File
		if a.Filename == "" {
			a.Filename = recordingFilename
		}
		if a.ContentType == "" {
			a.ContentType = mimetype.Detect(a.Data).String()
		}
		return &a
	}
	if len(in.Chunks) == 0 {
		return nil
	}
	data := bytes.Join(in.Chunks, nil)
	if len(data) == 0 {
		return nil
	}
	return &model.Audio{Filename: recordingFilename, ContentType: recordingContentType, Data: data}
}

// Titles are the defaults used when a capture arrives without a title.
type Titles struct {
	Audio string
	Text  string
}

// DefaultTitles match the labels the capture screen shows.
var DefaultTitles = Titles{Audio: "Audio Analysis Session", Text: "Text Analysis Session"}
