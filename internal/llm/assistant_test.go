package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/ia-avocats/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	reqs  []Request
	reply string
	err   error
}

func (r *recorder) Generate(_ context.Context, req Request) (string, error) {
	r.reqs = append(r.reqs, req)
	return r.reply, r.err
}

func TestAssistantLabelSendsPage(t *testing.T) {
	rec := &recorder{reply: " image\n"}
	a := NewAssistant(rec)
	page := models.Page{Index: 2, Data: []byte("%PDF"), MIMEType: models.MIMEPDF}

	got, err := a.Label(context.Background(), page)

	require.NoError(t, err)
	assert.Equal(t, "IMAGE", got)
	require.Len(t, rec.reqs, 1)
	require.NotNil(t, rec.reqs[0].Attachment)
	assert.Equal(t, models.MIMEPDF, rec.reqs[0].Attachment.MIMEType)
	assert.Equal(t, float32(0), rec.reqs[0].Temperature)
}

func TestAssistantDescribeTemperature(t *testing.T) {
	rec := &recorder{reply: "La pièce image montre un plan."}
	a := NewAssistant(rec)

	_, err := a.Describe(context.Background(), models.Page{Data: []byte{1}, MIMEType: models.MIMEPNG})

	require.NoError(t, err)
	assert.Equal(t, float32(1), rec.reqs[0].Temperature)
}

func TestAssistantTextPromptsEmbedInput(t *testing.T) {
	rec := &recorder{reply: "ok"}
	a := NewAssistant(rec)
	ctx := context.Background()

	calls := []func() (string, error){
		func() (string, error) { return a.Summarize(ctx, "TRANSCRIPT") },
		func() (string, error) { return a.ImageTitle(ctx, "TRANSCRIPT") },
		func() (string, error) { return a.BordereauTitle(ctx, "TRANSCRIPT") },
		func() (string, error) { return a.SummarizeChunk(ctx, "TRANSCRIPT") },
	}
	for _, call := range calls {
		out, err := call()
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	}

	for _, req := range rec.reqs {
		assert.Contains(t, req.Prompt, "(((TRANSCRIPT)))")
		assert.Nil(t, req.Attachment)
	}
}

func TestAssistantErrors(t *testing.T) {
	a := NewAssistant(&recorder{reply: "   "})
	_, err := a.Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	a = NewAssistant(&recorder{err: errors.Join(ErrUnauthenticated, errors.New("401"))})
	_, err = a.BordereauTitle(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
