// Package contracttype classifies token contracts as ERC-721, ERC-1155 or
// unknown and memoizes the outcome for the life of the process.
package contracttype

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/emperorhan/ownership-indexer/internal/chain/evm/erc"
	"github.com/emperorhan/ownership-indexer/internal/chain/evm/rpc"
	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/metrics"
)

// Persister stores learned ERC classifications across restarts. Unknown is
// never persisted so a restart re-probes it.
type Persister interface {
	LoadAll(ctx context.Context, network model.Network) (map[string]model.ContractType, error)
	Save(ctx context.Context, network model.Network, contract string, t model.ContractType) error
}

// Registry holds the classification of every contract seen on one network.
// Entries are never evicted; Forget is the only way to re-probe an address.
type Registry struct {
	network   model.Network
	caller    rpc.Caller
	persister Persister
	logger    *slog.Logger

	mu    sync.RWMutex
	types map[string]model.ContractType
}

type Option func(*Registry)

func WithPersister(p Persister) Option {
	return func(r *Registry) { r.persister = p }
}

func NewRegistry(network model.Network, caller rpc.Caller, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		network: network,
		caller:  caller,
		logger:  logger.With("component", "contract_registry", "network", network.String()),
		types:   make(map[string]model.ContractType),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Network() model.Network {
	return r.network
}

// Preload seeds the registry from the persister.
func (r *Registry) Preload(ctx context.Context) error {
	if r.persister == nil {
		return nil
	}
	known, err := r.persister.LoadAll(ctx, r.network)
	if err != nil {
		return fmt.Errorf("load contract types: %w", err)
	}
	r.mu.Lock()
	for addr, t := range known {
		r.types[model.NormalizeAddress(addr)] = t
	}
	r.mu.Unlock()
	r.logger.Info("contract types preloaded", "count", len(known))
	return nil
}

// Classify probes every address not yet classified. Both interface probes of
// all pending addresses go out in one JSON-RPC batch. An address for which
// neither probe answers true, including per-call errors, is memoized as
// Unknown. A failed batch round-trip is returned and nothing is memoized.
func (r *Registry) Classify(ctx context.Context, addrs []string) error {
	pending := r.unclassified(addrs)
	if len(pending) == 0 {
		return nil
	}

	calls := make([]rpc.CallMsg, 0, len(pending)*2)
	for _, addr := range pending {
		for _, iface := range [][4]byte{erc.InterfaceERC721, erc.InterfaceERC1155} {
			data, err := erc.SupportsInterfaceData(iface)
			if err != nil {
				return err
			}
			calls = append(calls, rpc.CallMsg{To: addr, Data: data})
		}
	}

	results, err := r.caller.EthCallBatch(ctx, calls)
	if err != nil {
		return fmt.Errorf("classify %d contracts: %w", len(pending), err)
	}
	if len(results) != len(calls) {
		return fmt.Errorf("classify: got %d results for %d calls", len(results), len(calls))
	}

	learned := make(map[string]model.ContractType, len(pending))
	for i, addr := range pending {
		t := model.ContractTypeUnknown
		switch {
		case supports(results[2*i]):
			t = model.ContractTypeERC721
		case supports(results[2*i+1]):
			t = model.ContractTypeERC1155
		}
		learned[addr] = t
		metrics.ContractClassifications.WithLabelValues(r.network.String(), t.String()).Inc()
	}

	r.mu.Lock()
	for addr, t := range learned {
		r.types[addr] = t
	}
	r.mu.Unlock()

	r.persist(ctx, learned)
	r.logger.Debug("contracts classified", "count", len(learned))
	return nil
}

func supports(res rpc.CallResult) bool {
	if res.Err != nil || len(res.Data) == 0 {
		return false
	}
	ok, err := erc.DecodeBool(res.Data)
	return err == nil && ok
}

func (r *Registry) persist(ctx context.Context, learned map[string]model.ContractType) {
	if r.persister == nil {
		return
	}
	for addr, t := range learned {
		if t == model.ContractTypeUnknown {
			continue
		}
		if err := r.persister.Save(ctx, r.network, addr, t); err != nil {
			r.logger.Warn("failed to persist contract type", "contract", addr, "type", t.String(), "error", err)
		}
	}
}

// unclassified returns the distinct normalized addresses with no entry yet,
// in first-seen order.
func (r *Registry) unclassified(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, raw := range addrs {
		addr := model.NormalizeAddress(raw)
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		if _, known := r.types[addr]; known {
			continue
		}
		out = append(out, addr)
	}
	return out
}

// Type returns the classification and whether the address was classified.
func (r *Registry) Type(addr string) (model.ContractType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[model.NormalizeAddress(addr)]
	return t, ok
}

func (r *Registry) IsERC721(addr string) bool {
	t, _ := r.Type(addr)
	return t == model.ContractTypeERC721
}

func (r *Registry) IsERC1155(addr string) bool {
	t, _ := r.Type(addr)
	return t == model.ContractTypeERC1155
}

// IsUnknown is true for addresses classified Unknown and for addresses never
// classified.
func (r *Registry) IsUnknown(addr string) bool {
	t, _ := r.Type(addr)
	return t == model.ContractTypeUnknown
}

// Forget drops classifications so the next Classify probes them again.
func (r *Registry) Forget(addrs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, addr := range addrs {
		delete(r.types, model.NormalizeAddress(addr))
	}
}

// ForgetUnknown drops every Unknown entry and returns how many were dropped.
func (r *Registry) ForgetUnknown() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for addr, t := range r.types {
		if t == model.ContractTypeUnknown {
			delete(r.types, addr)
			n++
		}
	}
	return n
}

// Entry is one classification in a Snapshot.
type Entry struct {
	Contract string `json:"contract"`
	Type     string `json:"type"`
}

// Snapshot lists all classifications sorted by contract address.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.types))
	for addr, t := range r.types {
		out = append(out, Entry{Contract: addr, Type: t.String()})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Contract < out[j].Contract })
	return out
}

// Set holds one Registry per network.
type Set struct {
	registries map[model.Network]*Registry
}

func NewSet(registries ...*Registry) *Set {
	s := &Set{registries: make(map[model.Network]*Registry, len(registries))}
	for _, r := range registries {
		s.registries[r.network] = r
	}
	return s
}

// For returns the registry of a network, or nil when none is configured.
func (s *Set) For(network model.Network) *Registry {
	if s == nil {
		return nil
	}
	return s.registries[network]
}

// Networks lists the configured networks in a stable order.
func (s *Set) Networks() []model.Network {
	out := make([]model.Network, 0, len(s.registries))
	for n := range s.registries {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Preload runs Preload on every registry, logging failures.
func (s *Set) Preload(ctx context.Context) {
	for _, n := range s.Networks() {
		r := s.registries[n]
		if err := r.Preload(ctx); err != nil {
			r.logger.Warn("contract type preload failed", "error", err)
		}
	}
}

// Snapshot returns every registry's Snapshot keyed by network.
func (s *Set) Snapshot() map[model.Network][]Entry {
	out := make(map[model.Network][]Entry, len(s.registries))
	for n, r := range s.registries {
		out[n] = r.Snapshot()
	}
	return out
}

// ForgetUnknown drops Unknown entries on every network so they get probed
// again, returning how many were dropped per network.
func (s *Set) ForgetUnknown() map[model.Network]int {
	out := make(map[model.Network]int, len(s.registries))
	for n, r := range s.registries {
		out[n] = r.ForgetUnknown()
	}
	return out
}
