package xmss

import (
	"sync"

	"github.com/ortiscore/xmssgo/adrs"
	"github.com/ortiscore/xmssgo/sigerr"
)

// parallelNode is one published node of the shared tree matrix: an n-byte
// value at (height, absolute index).
type parallelNode struct {
	value  []byte
	height int
	index  int
}

// treeHashPool splits the Merkle tree computation into independent tasks
// processed by multiple goroutines. For small h the single-threaded
// treeHash should be preferred, as the pool adds fixed overhead.
//
// tree[height][index] holds the published nodes, leaves at height 0 and
// the root at tree[h][0], guarded by mu. Tasks publish their sub-tree
// root (and, when storing, every internal node) under the lock, then walk
// upward merging with already-published siblings, so the reduction at the
// top of the tree is amortized across workers without a second pass.
type treeHashPool struct {
	config             *Config
	compactPrivateKeys []byte
	publicSeed         []byte

	mu   sync.Mutex
	tree [][]*parallelNode
}

func newTreeHashPool(c *Config, compactPrivateKeys, publicSeed []byte) *treeHashPool {
	h := c.h
	tree := make([][]*parallelNode, h+1)
	for i := range tree {
		tree[i] = make([]*parallelNode, 1<<uint(h-i))
	}
	return &treeHashPool{
		config:             c,
		compactPrivateKeys: compactPrivateKeys,
		publicSeed:         publicSeed,
		tree:               tree,
	}
}

// treeHashTask computes the sub-tree of height rootLevel whose leftmost
// leaf is startLeaf, then merges upward.
type treeHashTask struct {
	pool      *treeHashPool
	startLeaf int
	rootLevel int
	storeTree bool
}

// splitTasks partitions the 2^h leaves into contiguous batches of 2^p
// leaves, p being the largest value in [1, h) such that
// 2^p * parallelism < 2^h, falling back to p = 1 when the search yields
// nothing. The batch size is therefore always an even power of two that
// divides the leaf count.
func (p *treeHashPool) splitTasks(parallelism int, storeTree bool) ([]*treeHashTask, error) {
	h := p.config.h
	leafCount := p.config.wotspCount

	batch := -1
	for i := 1; i < h; i++ {
		lpt := 1 << uint(i)
		if lpt*parallelism >= leafCount {
			break
		}
		batch = lpt
	}
	if batch <= 0 {
		batch = 2
	}

	if batch&(batch-1) != 0 || batch%2 != 0 {
		return nil, sigerr.Invariant("xmss: leaves per task %d must be an even power of 2", batch)
	}

	rootLevel := -1
	for lvl := 1; lvl <= h; lvl++ {
		if 1<<uint(lvl) == batch {
			rootLevel = lvl
			break
		}
	}
	if rootLevel <= 0 {
		return nil, sigerr.Invariant("xmss: no root level matches batch size %d", batch)
	}

	tasks := make([]*treeHashTask, 0, leafCount/batch)
	for l := 0; l < leafCount; l += batch {
		tasks = append(tasks, &treeHashTask{
			pool:      p,
			startLeaf: l,
			rootLevel: rootLevel,
			storeTree: storeTree,
		})
	}
	if len(tasks) != leafCount/batch {
		return nil, sigerr.Invariant("xmss: built %d tasks, want %d", len(tasks), leafCount/batch)
	}
	return tasks, nil
}

// publish sets a tree slot under the lock held by the caller. A slot that
// is already occupied indicates overlapping tasks, which is a bug.
func (p *treeHashPool) publish(node *parallelNode) error {
	if p.tree[node.height][node.index] != nil {
		return sigerr.Invariant("xmss: tree node (height=%d, index=%d) already set", node.height, node.index)
	}
	p.tree[node.height][node.index] = node
	return nil
}

// run computes the task's sub-tree with the single-threaded treeHash,
// publishes its nodes and merges upward with finished siblings.
func (t *treeHashTask) run() error {
	c := t.pool.config
	h := c.h
	n := c.wotsp.N()
	a := adrs.New()

	var flat []byte
	if t.storeTree {
		flat = make([]byte, ((1<<uint(t.rootLevel+1))-1)*n)
	}

	root, err := treeHash(c, t.startLeaf, t.rootLevel, t.pool.compactPrivateKeys, t.pool.publicSeed, a, flat)
	if err != nil {
		return err
	}

	rootIndex := t.startLeaf >> uint(t.rootLevel)

	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()

	if t.storeTree {
		for height := 0; height <= t.rootLevel; height++ {
			count := 1 << uint(t.rootLevel-height)
			absIndex := t.startLeaf >> uint(height)
			for local := 0; local < count; local++ {
				off, err := flatTreeIndex(height, local, 0, t.rootLevel, n)
				if err != nil {
					return err
				}
				node := &parallelNode{
					value:  append([]byte(nil), flat[off:off+n]...),
					height: height,
					index:  absIndex + local,
				}
				if err := t.pool.publish(node); err != nil {
					return err
				}
			}
		}
	} else {
		node := &parallelNode{value: root, height: t.rootLevel, index: rootIndex}
		if err := t.pool.publish(node); err != nil {
			return err
		}
	}

	// Walk upward while the parent slot is empty and the sibling has been
	// published; the even-indexed node is always the left child.
	local := t.pool.tree[t.rootLevel][rootIndex]
	for local.height < h {
		if t.pool.tree[local.height+1][local.index/2] != nil {
			break
		}

		var sibling *parallelNode
		localLeft := local.index%2 == 0
		if localLeft {
			sibling = t.pool.tree[local.height][local.index+1]
		} else {
			sibling = t.pool.tree[local.height][local.index-1]
		}
		if sibling == nil {
			break
		}

		a.SetType(adrs.HashTree)
		if err := a.SetTreeHeight(local.height); err != nil {
			return err
		}

		var left, right []byte
		if localLeft {
			left, right = local.value, sibling.value
			if err := a.SetTreeIndex(local.index >> 1); err != nil {
				return err
			}
		} else {
			left, right = sibling.value, local.value
			if err := a.SetTreeIndex((local.index - 1) >> 1); err != nil {
				return err
			}
		}

		parentValue := make([]byte, n)
		if err := randHash(c, left, right, t.pool.publicSeed, a, parentValue); err != nil {
			return err
		}

		parent := &parallelNode{value: parentValue, height: local.height + 1, index: local.index / 2}
		if err := t.pool.publish(parent); err != nil {
			return err
		}
		local = parent
	}
	return nil
}

// root returns the fully merged tree root. It is only valid after every
// task has finished.
func (p *treeHashPool) root() ([]byte, error) {
	node := p.tree[p.config.h][0]
	if node == nil {
		return nil, sigerr.Invariant("xmss: parallel treeHash finished without a root")
	}
	return node.value, nil
}

// toTree assembles the canonical flat buffer from the node matrix. Every
// slot must be populated, which requires the tasks to have run with
// storeTree set.
func (p *treeHashPool) toTree() (*Tree, error) {
	h := p.config.h
	n := p.config.wotsp.N()
	flat := make([]byte, p.config.treeNodeCount*n)

	for height := 0; height < len(p.tree); height++ {
		for index, node := range p.tree[height] {
			if node == nil {
				return nil, sigerr.Invariant("xmss: tree node (height=%d, index=%d) missing after all tasks finished", height, index)
			}
			off, err := flatTreeIndex(height, index, 0, h, n)
			if err != nil {
				return nil, err
			}
			copy(flat[off:off+n], node.value)
		}
	}
	return NewTree(h, n, flat)
}

// buildTreeParallel runs the task set on `parallelism` goroutines and
// blocks until all finish. The first task error is returned; a hash
// failure in any worker surfaces here.
func buildTreeParallel(c *Config, compactPrivateKeys, publicSeed []byte, storeTree bool, parallelism int) (*treeHashPool, error) {
	pool := newTreeHashPool(c, compactPrivateKeys, publicSeed)
	tasks, err := pool.splitTasks(parallelism, storeTree)
	if err != nil {
		return nil, err
	}

	queue := make(chan *treeHashTask, len(tasks))
	for _, task := range tasks {
		queue <- task
	}
	close(queue)

	errs := make(chan error, parallelism)
	var wg sync.WaitGroup
	for i := 0; i < parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				if err := task.run(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}
	return pool, nil
}
