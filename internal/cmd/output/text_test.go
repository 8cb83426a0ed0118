package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePrinter records calls and fails on a chosen item.
type fakePrinter[T comparable] struct {
	headerCount  int
	footerCount  int
	footerCalled bool
	items        []T
	errOnItem    T
}

func (p *fakePrinter[T]) Header(w io.Writer, count int) {
	p.headerCount = count
	_, _ = io.WriteString(w, "HEADER\n")
}

func (p *fakePrinter[T]) SetHeader(WriteFunc[T]) {}

func (p *fakePrinter[T]) Item(w io.Writer, item T) error {
	p.items = append(p.items, item)
	if item == p.errOnItem {
		return errors.New("item error")
	}
	_, err := fmt.Fprintf(w, "ITEM:%v\n", item)
	return err
}

func (p *fakePrinter[T]) Footer(w io.Writer, count int) {
	p.footerCalled = true
	p.footerCount = count
	_, _ = io.WriteString(w, "FOOTER\n")
}

func (p *fakePrinter[T]) SetFooter(WriteFunc[T]) {}

func TestTextHandler_HandleResults(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	p := &fakePrinter[string]{}
	h := NewTextHandler[string](buf, p)
	require.Equal(t, buf, h.Writer())

	require.NoError(t, h.HandleResults("calc", "weather"))
	require.Equal(t, 2, p.headerCount)
	require.Equal(t, 2, p.footerCount)
	require.Equal(t, "HEADER\nITEM:calc\nITEM:weather\nFOOTER\n", buf.String())
}

func TestTextHandler_HandleResults_Empty(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	p := &fakePrinter[string]{}
	h := NewTextHandler[string](buf, p)

	require.NoError(t, h.HandleResults())
	require.False(t, p.footerCalled)
	require.Equal(t, "No servers found\n", buf.String())
}

func TestTextHandler_HandleResults_ItemError(t *testing.T) {
	t.Parallel()

	p := &fakePrinter[int]{errOnItem: 2}
	h := NewTextHandler[int](io.Discard, p)

	err := h.HandleResults(1, 2, 3)
	require.EqualError(t, err, "item error")
	require.Equal(t, []int{1, 2}, p.items)
	require.False(t, p.footerCalled)
}

func TestTextHandler_HandleResult(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	p := &fakePrinter[string]{}
	h := NewTextHandler[string](buf, p)

	require.NoError(t, h.HandleResult("calc"))
	require.Equal(t, 1, p.headerCount)
	require.Equal(t, "HEADER\nITEM:calc\nFOOTER\n", buf.String())
}

func TestTextHandler_HandleError(t *testing.T) {
	t.Parallel()

	h := NewTextHandler[string](nil, &fakePrinter[string]{})
	require.EqualError(t, h.HandleError(errors.New("test failure")), "test failure")
}
