// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_DeliversInOrderThenCloses(t *testing.T) {
	a, b := snap("technical", "a"), snap(End, "b")
	seq := FromSnapshots(context.Background(), a, b)
	defer seq.Close()

	var got []*Snapshot
	for item := range seq.Items() {
		require.NoError(t, item.Err)
		got = append(got, item.Snapshot)
	}
	assert.Equal(t, []*Snapshot{a, b}, got)
}

func TestSequence_ProducerErrorIsLastItem(t *testing.T) {
	seq := NewSequence(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		if err := emit(snap("technical", "a")); err != nil {
			return err
		}
		return errors.New("upstream 500")
	})
	defer seq.Close()

	first := <-seq.Items()
	require.NotNil(t, first.Snapshot)
	second := <-seq.Items()
	assert.EqualError(t, second.Err, "upstream 500")
	_, ok := <-seq.Items()
	assert.False(t, ok)
}

func TestSequence_PanicBecomesError(t *testing.T) {
	seq := NewSequence(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		panic("nil map")
	})
	defer seq.Close()
	item := <-seq.Items()
	assert.EqualError(t, item.Err, "pipeline panic: nil map")
}

func TestSequence_CloseCancelsBlockedProducer(t *testing.T) {
	emitted := make(chan error, 1)
	seq := NewSequence(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		err := emit(snap("technical", "never read"))
		emitted <- err
		return err
	})

	seq.Close()
	select {
	case err := <-emitted:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("producer still blocked after Close")
	}
	<-seq.Done()
	seq.Close()
}
