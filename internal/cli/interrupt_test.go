package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewInterruptHandler(t *testing.T) {
	tests := []struct {
		writer io.Writer
		name   string
	}{
		{
			name:   "with custom writer",
			writer: &bytes.Buffer{},
		},
		{
			name:   "with nil writer",
			writer: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInterruptHandler(tt.writer)
			assert.NotNil(t, handler)
			assert.NotNil(t, handler.writer)
			assert.False(t, handler.WasInterrupted())
		})
	}
}

func TestWatch_Signal(t *testing.T) {
	var output bytes.Buffer
	handler := &InterruptHandler{writer: &output, message: "No report was written."}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 2)
	signals <- os.Interrupt
	signals <- os.Interrupt

	handler.watch(ctx, cancel, signals)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should be canceled after a signal")
	}
	assert.True(t, handler.WasInterrupted())
	assert.Equal(t, 1, strings.Count(output.String(), "Interrupted!"), "message is shown once")
	assert.Contains(t, output.String(), "No report was written.")
}

func TestWatch_ContextDone(t *testing.T) {
	var output bytes.Buffer
	handler := &InterruptHandler{writer: &output}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler.watch(ctx, cancel, make(chan os.Signal))

	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, output.String())
}

func TestHandleInterrupts_ParentCancel(t *testing.T) {
	handler := NewInterruptHandler(&bytes.Buffer{})

	parent, cancel := context.WithCancel(context.Background())
	ctx := handler.HandleInterrupts(parent, "")
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("derived context should follow its parent")
	}
	assert.False(t, handler.WasInterrupted())
}

func TestShowInterruptMessage(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		expected    []string
		notExpected []string
	}{
		{
			name:     "with message",
			message:  "Server stopped.",
			expected: []string{"Interrupted!", "Server stopped."},
		},
		{
			name:        "without message",
			expected:    []string{"Interrupted!"},
			notExpected: []string{InfoIcon},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			handler := &InterruptHandler{writer: &output, message: tt.message}

			handler.showInterruptMessage()

			for _, expected := range tt.expected {
				assert.Contains(t, output.String(), expected)
			}
			for _, notExpected := range tt.notExpected {
				assert.NotContains(t, output.String(), notExpected)
			}
		})
	}
}
