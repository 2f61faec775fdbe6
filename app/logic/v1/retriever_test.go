package v1

import (
	"context"
	"fmt"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"

	"github.com/sagechat-ai/sagechat/app/core"
	"github.com/sagechat-ai/sagechat/pkg/ai"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

type fakeEmbedder struct {
	err    error
	tokens int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) (*ai.EmbedResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ai.EmbedResult{
		Vector: []float32{0.1, 0.2, 0.3},
		Model:  ai.DefaultEmbeddingModel,
		Tokens: f.tokens,
	}, nil
}

func (f *fakeEmbedder) EmbeddingModel() string {
	return ai.DefaultEmbeddingModel
}

type fakeVectorStore struct {
	rows    []types.VectorQueryResult
	err     error
	created []types.ConversationVector
}

func (f *fakeVectorStore) Create(ctx context.Context, data types.ConversationVector) error {
	f.created = append(f.created, data)
	return nil
}

func (f *fakeVectorStore) Query(ctx context.Context, userID, conversationID string, vector pgvector.Vector, limit uint64) ([]types.VectorQueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if uint64(len(f.rows)) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func Test_Retriever_FiltersByMinScore(t *testing.T) {
	vectors := &fakeVectorStore{rows: []types.VectorQueryResult{
		{ID: "a", Content: "first", Role: types.USER_ROLE_USER, Cos: 0.9},
		{ID: "b", Content: "second", Role: types.USER_ROLE_ASSISTANT, Cos: 0.75},
		{ID: "c", Content: "third", Role: types.USER_ROLE_USER, Cos: 0.5},
	}}
	r := NewRetriever(vectors, &fakeEmbedder{tokens: 8}, core.RetrievalConfig{MinScore: 0.7})

	result := r.Retrieve(context.Background(), "u1", "c1", "question")

	if assert.Len(t, result.Matches, 2) {
		assert.Equal(t, "a", result.Matches[0].ID)
		assert.Equal(t, "b", result.Matches[1].ID)
	}
	assert.Equal(t, 8, result.EmbedTokens)
}

func Test_Retriever_EmbedFailureYieldsEmpty(t *testing.T) {
	vectors := &fakeVectorStore{rows: []types.VectorQueryResult{{ID: "a", Cos: 0.9}}}
	r := NewRetriever(vectors, &fakeEmbedder{err: fmt.Errorf("provider down")}, core.RetrievalConfig{})

	result := r.Retrieve(context.Background(), "u1", "c1", "question")

	assert.Empty(t, result.Matches)
	assert.Zero(t, result.EmbedTokens)
}

func Test_Retriever_QueryFailureYieldsEmpty(t *testing.T) {
	vectors := &fakeVectorStore{err: fmt.Errorf("store unreachable")}
	r := NewRetriever(vectors, &fakeEmbedder{tokens: 4}, core.RetrievalConfig{})

	result := r.Retrieve(context.Background(), "u1", "c1", "question")

	assert.Empty(t, result.Matches)
	// 向量化已经发生，消耗照常上报
	assert.Equal(t, 4, result.EmbedTokens)
}

func Test_Retriever_StoreMessage(t *testing.T) {
	vectors := &fakeVectorStore{}
	r := NewRetriever(vectors, &fakeEmbedder{tokens: 4}, core.RetrievalConfig{})

	data, err := r.StoreMessage(context.Background(), "u1", "c1", "m1", types.USER_ROLE_USER, "hello")

	assert.NoError(t, err)
	if assert.Len(t, vectors.created, 1) {
		assert.Equal(t, "m1", vectors.created[0].MessageID)
		assert.Equal(t, types.USER_ROLE_USER, vectors.created[0].Role)
	}
	assert.NotNil(t, data)
}

func Test_FormatContext(t *testing.T) {
	block := FormatContext([]types.RetrievedMatch{
		{Role: types.USER_ROLE_USER, Content: "what is Go"},
		{Role: types.USER_ROLE_ASSISTANT, Content: "a programming language"},
	})

	assert.Equal(t, "1. [user]: what is Go\n2. [assistant]: a programming language", block)
	assert.Equal(t, "", FormatContext(nil))
}
