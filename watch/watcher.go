package watch

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/slog"
)

// ChainSource is the subset of the node RPC the watcher polls.
type ChainSource interface {
	GetBlockCount() (int64, error)
	GetBlockHash(height int64) (*chainhash.Hash, error)
	GetBlock(hash *chainhash.Hash) (*wire.MsgBlock, error)
	GetRawMempool() ([]*chainhash.Hash, error)
	GetRawTransaction(hash *chainhash.Hash) (*btcutil.Tx, error)
	GetTxOut(hash *chainhash.Hash, index uint32, mempool bool) (*btcjson.GetTxOutResult, error)
}

var _ ChainSource = (*rpcclient.Client)(nil)

// Dial connects to a bitcoind or btcd node over HTTP POST RPC.
func Dial(host, user, pass string, useTLS bool) (*rpcclient.Client, error) {
	c, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         pass,
		HTTPPostMode: true,
		DisableTLS:   !useTLS,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("rpc connect %s: %w", host, err)
	}
	return c, nil
}

// UTXO is an unspent output paying a watched script.
type UTXO struct {
	OutPoint wire.OutPoint
	Value    int64
	PkScript []byte
}

// DepositUpdate is the funding state of one script at a poll tick.
type DepositUpdate struct {
	PkScriptHex string
	// Confs is the lowest confirmation count across UTXOs.
	Confs uint32
	UTXOs []UTXO
	Tip   int64
	At    time.Time
}

// Funded reports whether at least one UTXO has minConfs confirmations.
func (u DepositUpdate) Funded(minConfs uint32) bool {
	return len(u.UTXOs) > 0 && u.Confs >= minConfs
}

// Total sums the UTXO values.
func (u DepositUpdate) Total() int64 {
	var sum int64
	for _, o := range u.UTXOs {
		sum += o.Value
	}
	return sum
}

// Watcher scans new blocks and the mempool for every pkScript that has at
// least one subscriber and pushes a DepositUpdate per script each tick.
// UTXOs found in earlier ticks are kept until the node reports them spent.
type Watcher struct {
	log slog.Logger
	src ChainSource

	mu      sync.RWMutex
	tip     int64
	subs    map[string]map[chan DepositUpdate]struct{}
	pkBytes map[string][]byte
	known   map[string]map[wire.OutPoint]UTXO

	// Only touched by the polling goroutine.
	lastScanned int64
}

// New returns a watcher polling src. A nil log disables logging.
func New(log slog.Logger, src ChainSource) *Watcher {
	if log == nil {
		log = slog.Disabled
	}
	return &Watcher{
		log:         log,
		src:         src,
		tip:         -1,
		subs:        make(map[string]map[chan DepositUpdate]struct{}),
		pkBytes:     make(map[string][]byte),
		known:       make(map[string]map[wire.OutPoint]UTXO),
		lastScanned: -1,
	}
}

// Run polls every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	w.log.Infof("watcher: started")
	defer w.log.Infof("watcher: stopped")
	t := time.NewTicker(interval)
	defer t.Stop()
	w.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.PollOnce(ctx)
		}
	}
}

// PollOnce runs one scan and broadcasts the state of every subscribed script.
func (w *Watcher) PollOnce(ctx context.Context) {
	if h, err := w.src.GetBlockCount(); err == nil {
		w.mu.Lock()
		w.tip = h
		w.mu.Unlock()
	} else {
		w.log.Debugf("watcher: GetBlockCount failed: %v", err)
	}

	w.mu.RLock()
	if len(w.subs) == 0 {
		w.mu.RUnlock()
		return
	}
	scripts := make(map[string][]byte, len(w.subs))
	empty := false
	for k := range w.subs {
		scripts[k] = w.pkBytes[k]
		if len(w.known[k]) == 0 {
			empty = true
		}
	}
	tip := w.tip
	w.mu.RUnlock()

	found := make(map[string][]UTXO)
	match := func(tx *wire.MsgTx) {
		txid := tx.TxHash()
		for i, out := range tx.TxOut {
			for k, pk := range scripts {
				if pk != nil && bytes.Equal(out.PkScript, pk) {
					found[k] = append(found[k], UTXO{
						OutPoint: wire.OutPoint{Hash: txid, Index: uint32(i)},
						Value:    out.Value,
						PkScript: pk,
					})
				}
			}
		}
	}

	// New blocks. On first run or after a reorg below lastScanned only the
	// tip is scanned.
	if tip >= 0 && tip != w.lastScanned {
		start := w.lastScanned + 1
		if w.lastScanned == -1 || start > tip {
			start = tip
		}
		for h := start; h <= tip && ctx.Err() == nil; h++ {
			hash, err := w.src.GetBlockHash(h)
			if err != nil {
				w.log.Debugf("watcher: GetBlockHash(%d): %v", h, err)
				continue
			}
			blk, err := w.src.GetBlock(hash)
			if err != nil || blk == nil {
				w.log.Debugf("watcher: GetBlock(%s): %v", hash, err)
				continue
			}
			for _, tx := range blk.Transactions {
				match(tx)
			}
		}
		w.lastScanned = tip
	}

	// Mempool, only while some script has nothing known yet.
	if empty {
		if txids, err := w.src.GetRawMempool(); err == nil {
			for _, id := range txids {
				if ctx.Err() != nil {
					break
				}
				tx, err := w.src.GetRawTransaction(id)
				if err != nil || tx == nil {
					continue
				}
				match(tx.MsgTx())
			}
		} else {
			w.log.Debugf("watcher: GetRawMempool failed: %v", err)
		}
	}

	for k := range scripts {
		if list := found[k]; len(list) > 0 {
			w.log.Debugf("watcher: pk=%s found %d outputs (tip %d)", k, len(list), tip)
			w.mu.Lock()
			km := w.known[k]
			if km == nil {
				km = make(map[wire.OutPoint]UTXO)
				w.known[k] = km
			}
			for _, u := range list {
				km[u.OutPoint] = u
			}
			w.mu.Unlock()
		}
		w.broadcast(k, w.current(k, tip))
	}
}

// current checks every known UTXO of k against the node, dropping spent ones.
// A UTXO whose lookup fails stays known but is left out of this update.
func (w *Watcher) current(k string, tip int64) DepositUpdate {
	w.mu.RLock()
	candidates := make([]UTXO, 0, len(w.known[k]))
	for _, u := range w.known[k] {
		candidates = append(candidates, u)
	}
	w.mu.RUnlock()

	upd := DepositUpdate{PkScriptHex: k, Tip: tip, At: time.Now()}
	minConfs := int64(-1)
	for _, u := range candidates {
		res, err := w.src.GetTxOut(&u.OutPoint.Hash, u.OutPoint.Index, true)
		if err != nil {
			// Kept for the next tick; its block is already behind lastScanned.
			w.log.Debugf("watcher: GetTxOut(%s): %v", u.OutPoint, err)
			continue
		}
		if res == nil {
			w.mu.Lock()
			if set := w.known[k]; set != nil {
				delete(set, u.OutPoint)
			}
			w.mu.Unlock()
			continue
		}
		upd.UTXOs = append(upd.UTXOs, u)
		if minConfs < 0 || res.Confirmations < minConfs {
			minConfs = res.Confirmations
		}
	}
	switch {
	case minConfs <= 0:
		upd.Confs = 0
	case minConfs > int64(^uint32(0)):
		upd.Confs = ^uint32(0)
	default:
		upd.Confs = uint32(minConfs)
	}
	sort.Slice(upd.UTXOs, func(i, j int) bool {
		a, b := upd.UTXOs[i].OutPoint, upd.UTXOs[j].OutPoint
		if a.Hash != b.Hash {
			return bytes.Compare(a.Hash[:], b.Hash[:]) < 0
		}
		return a.Index < b.Index
	})
	return upd
}

// Subscribe adds a listener for pkScript and returns the channel and an
// unsubscribe func. The first update arrives on the next poll.
func (w *Watcher) Subscribe(pkScript []byte) (<-chan DepositUpdate, func()) {
	k := hex.EncodeToString(pkScript)
	ch := make(chan DepositUpdate, 8)

	w.mu.Lock()
	w.pkBytes[k] = append([]byte(nil), pkScript...)
	if _, ok := w.subs[k]; !ok {
		w.subs[k] = make(map[chan DepositUpdate]struct{})
	}
	w.subs[k][ch] = struct{}{}
	n := len(w.subs[k])
	w.mu.Unlock()
	w.log.Infof("watcher: subscribed pk=%s (subs=%d)", k, n)

	unsub := func() {
		w.mu.Lock()
		if set, ok := w.subs[k]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(w.subs, k)
				delete(w.known, k)
				delete(w.pkBytes, k)
			}
		}
		w.mu.Unlock()
		w.log.Infof("watcher: unsubscribed pk=%s", k)
	}
	return ch, unsub
}

// broadcast sends u to every subscriber of k, dropping it for slow receivers.
func (w *Watcher) broadcast(k string, u DepositUpdate) {
	w.mu.RLock()
	chs := make([]chan DepositUpdate, 0, len(w.subs[k]))
	for ch := range w.subs[k] {
		chs = append(chs, ch)
	}
	w.mu.RUnlock()

	for _, ch := range chs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Tip returns the last block height seen, or -1.
func (w *Watcher) Tip() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tip
}
