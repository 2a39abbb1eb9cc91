package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"digital-store/internal/util"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatFixture(client *fakeCompletion) (*ChatService, *fakeChatHistory) {
	history := newFakeChatHistory()
	svc := &ChatService{
		client:  client,
		history: history,
		model:   "gpt-4o",
		logger:  util.GetLogger(),
	}
	return svc, history
}

func TestChatDisabled(t *testing.T) {
	ctx := context.Background()
	svc := NewChatService(nil, newFakeChatHistory(), "gpt-4o")

	assert.False(t, svc.Enabled())
	_, err := svc.Chat(ctx, "sess-1", "hello")
	assert.ErrorIs(t, err, ErrChatDisabled)
	assert.Equal(t, neutralSentiment(), svc.AnalyzeSentiment(ctx, "hello"))
}

func TestChat(t *testing.T) {
	ctx := context.Background()
	client := &fakeCompletion{replies: []string{
		"Sure, I can help with that.",
		`{"rating": 4, "confidence": 0.9, "urgent": false, "emotion": "curious"}`,
	}}
	svc, history := chatFixture(client)

	reply, err := svc.Chat(ctx, "sess-1", "How do I download my movie?")
	require.NoError(t, err)
	assert.Equal(t, "Sure, I can help with that.", reply.Response)
	assert.Equal(t, 4, reply.Sentiment.Rating)
	assert.Equal(t, "curious", reply.Sentiment.Emotion)

	// first request is the chat turn: system prompt, then the user message
	require.Len(t, client.requests, 2)
	chatReq := client.requests[0]
	require.Len(t, chatReq.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, chatReq.Messages[0].Role)
	assert.Equal(t, "How do I download my movie?", chatReq.Messages[1].Content)

	stored, err := history.GetChatHistory(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, openai.ChatMessageRoleUser, stored[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, stored[1].Role)
}

func TestChatCarriesHistory(t *testing.T) {
	ctx := context.Background()
	client := &fakeCompletion{}
	svc, _ := chatFixture(client)

	for i := 0; i < 3; i++ {
		_, err := svc.Chat(ctx, "sess-1", fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	// requests alternate chat, sentiment; the last chat request carries
	// the two prior turns
	lastChat := client.requests[4]
	require.Len(t, lastChat.Messages, 6)
	assert.Equal(t, "question 0", lastChat.Messages[1].Content)
	assert.Equal(t, "question 2", lastChat.Messages[5].Content)
}

func TestChatHistoryBounded(t *testing.T) {
	ctx := context.Background()
	client := &fakeCompletion{}
	svc, history := chatFixture(client)

	for i := 0; i < 8; i++ {
		_, err := svc.Chat(ctx, "sess-1", fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	stored, err := history.GetChatHistory(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, stored, chatHistoryLimit)
	assert.Equal(t, "question 3", stored[0].Content, "oldest turns fall off")
}

func TestChatFallbackOnModelError(t *testing.T) {
	ctx := context.Background()
	client := &fakeCompletion{err: errors.New("rate limited")}
	svc, history := chatFixture(client)

	reply, err := svc.Chat(ctx, "sess-1", "hello")
	assert.Error(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, chatFallbackReply, reply.Response)
	assert.Equal(t, neutralSentiment(), reply.Sentiment)

	stored, err := history.GetChatHistory(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, stored, "failed turns are not recorded")
}

func TestAnalyzeSentimentClamping(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		response string
		want     Sentiment
	}{
		{
			"rating above range",
			`{"rating": 9, "confidence": 1.7, "urgent": true, "emotion": "angry"}`,
			Sentiment{Rating: 5, Confidence: 1, Urgent: true, Emotion: "angry"},
		},
		{
			"rating below range",
			`{"rating": -2, "confidence": -0.3, "urgent": false, "emotion": "sad"}`,
			Sentiment{Rating: 1, Confidence: 0, Urgent: false, Emotion: "sad"},
		},
		{
			"fractional rating rounds",
			`{"rating": 3.6, "confidence": 0.8, "urgent": false, "emotion": "happy"}`,
			Sentiment{Rating: 4, Confidence: 0.8, Urgent: false, Emotion: "happy"},
		},
		{
			"missing emotion defaults to neutral",
			`{"rating": 3, "confidence": 0.5, "urgent": false}`,
			Sentiment{Rating: 3, Confidence: 0.5, Urgent: false, Emotion: "neutral"},
		},
		{
			"unparseable response degrades to neutral",
			`not json at all`,
			neutralSentiment(),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := chatFixture(&fakeCompletion{replies: []string{tc.response}})
			assert.Equal(t, tc.want, svc.AnalyzeSentiment(ctx, "some message"))
		})
	}
}

func TestChatClearHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := chatFixture(&fakeCompletion{})

	_, err := svc.Chat(ctx, "sess-1", "hello")
	require.NoError(t, err)

	stored, err := svc.History(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	require.NoError(t, svc.ClearHistory(ctx, "sess-1"))
	stored, err = svc.History(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}
