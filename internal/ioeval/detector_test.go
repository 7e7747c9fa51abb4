package ioeval_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/internal/ioeval"
	"github.com/medtext/omoplink/pkg/errcode"
	"github.com/medtext/omoplink/pkg/omoplink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDetectorFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mentions.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDetectExplicit(t *testing.T) {
	doc := omoplink.Document{
		ID:   "n1",
		Text: "Patient with pneumonia and viral pneumonia.",
	}
	det, err := ioeval.NewFileDetector(writeDetectorFile(t,
		"note_id,start,end,text\n"+
			"n1,27,42,viral pneumonia\n"+
			"n1,13,22,\n"+
			"n1,100,105,beyond\n"))
	require.NoError(t, err)

	mentions, err := det.Detect(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, mentions, 3)

	// Explicit offsets pass through untouched and sorted by position;
	// the out-of-bounds span is the harness's problem, not the
	// detector's.
	assert.Equal(t, omoplink.Mention{
		DocumentID: "n1", Start: 13, End: 22,
	}, mentions[0])
	assert.Equal(t, omoplink.Mention{
		DocumentID: "n1", Start: 27, End: 42, Text: "viral pneumonia",
	}, mentions[1])
	assert.Equal(t, 100, mentions[2].Start)
	assert.Equal(t, "beyond", mentions[2].Text)
}

func TestDetectLocate(t *testing.T) {
	doc := omoplink.Document{
		ID:   "n2",
		Text: "Acute bacterial pneumonia suspected. No aspirin given.",
	}
	// Locate rows tolerate case and whitespace differences, and the
	// shorter "pneumonia" occurrence inside "bacterial pneumonia"
	// loses to the longer span. The explicit row rides along.
	det, err := ioeval.NewFileDetector(writeDetectorFile(t,
		"note_id,start,end,text\n"+
			"n2,,,Bacterial   Pneumonia\n"+
			"n2,,,pneumonia\n"+
			"n2,,,aspirin\n"+
			"n2,0,5,Acute\n"))
	require.NoError(t, err)

	mentions, err := det.Detect(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, mentions, 3)

	assert.Equal(t, omoplink.Mention{
		DocumentID: "n2", Start: 0, End: 5, Text: "Acute",
	}, mentions[0])
	assert.Equal(t, omoplink.Mention{
		DocumentID: "n2", Start: 6, End: 25, Text: "bacterial pneumonia",
	}, mentions[1])
	assert.Equal(t, omoplink.Mention{
		DocumentID: "n2", Start: 40, End: 47, Text: "aspirin",
	}, mentions[2])
}

func TestDetectUnknownDocument(t *testing.T) {
	det, err := ioeval.NewFileDetector(writeDetectorFile(t,
		"note_id,start,end,text\n"+
			"n1,0,5,Acute\n"))
	require.NoError(t, err)

	mentions, err := det.Detect(context.Background(),
		omoplink.Document{ID: "other", Text: "No mentions here."})
	require.NoError(t, err)
	assert.Empty(t, mentions)
}

func TestDetectorFileErrors(t *testing.T) {
	_, err := ioeval.NewFileDetector(
		filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.EvalMentionsError, gnErr.Code)

	tests := []struct {
		msg     string
		content string
	}{
		{"missing column", "note_id,start,end\nn1,1,2\n"},
		{"bad start", "note_id,start,end,text\nn1,abc,5,x\n"},
		{"bad end", "note_id,start,end,text\nn1,1,xyz,x\n"},
		{"half offsets", "note_id,start,end,text\nn1,,5,x\n"},
		{"neither offsets nor text", "note_id,start,end,text\nn1,,,\n"},
		{"ragged row", "note_id,start,end,text\nn1,1\n"},
	}
	for _, tc := range tests {
		_, err := ioeval.NewFileDetector(writeDetectorFile(t, tc.content))
		require.Error(t, err, tc.msg)
		var gnErr *gn.Error
		require.ErrorAs(t, err, &gnErr, tc.msg)
		assert.Equal(t, errcode.EvalMentionsError, gnErr.Code, tc.msg)
	}
}

func TestDetectCancel(t *testing.T) {
	det, err := ioeval.NewFileDetector(writeDetectorFile(t,
		"note_id,start,end,text\n"+
			"n1,0,5,Acute\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = det.Detect(ctx, omoplink.Document{ID: "n1", Text: "Acute."})
	assert.ErrorIs(t, err, context.Canceled)
}
