package intake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id   int
	link Node[item]
}

func itemNode(i *item) *Node[item] { return &i.link }

func TestPushDrainIsLIFO(t *testing.T) {
	l := New(itemNode)
	items := []*item{{id: 1}, {id: 2}, {id: 3}}
	for _, it := range items {
		l.Push(it)
	}
	head := l.Drain()
	var order []int
	for cur := head; cur != nil; cur = l.Next(cur) {
		order = append(order, cur.id)
	}
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestDrainThenReverseIsPushOrder(t *testing.T) {
	l := New(itemNode)
	items := []*item{{id: 1}, {id: 2}, {id: 3}, {id: 4}}
	for _, it := range items {
		l.Push(it)
	}
	head := l.Drain()
	head = l.Reverse(head)
	var order []int
	for cur := head; cur != nil; cur = l.Next(cur) {
		order = append(order, cur.id)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, order)
}

func TestDrainEmpty(t *testing.T) {
	l := New(itemNode)
	require.Nil(t, l.Drain())
}

func TestConcurrentPushSingleDrainer(t *testing.T) {
	l := New(itemNode)
	const n = 2000
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l.Push(&item{id: id})
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for cur := l.Drain(); cur != nil; cur = l.Next(cur) {
		assert.False(t, seen[cur.id], "duplicate id %d", cur.id)
		seen[cur.id] = true
	}
	assert.Len(t, seen, n)
}
