// Package onchain verifies linked third-party items against the chain:
// item definition mappings first, then one ownerOf/balanceOf batch per
// network.
package onchain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/emperorhan/ownership-indexer/internal/chain/evm/erc"
	"github.com/emperorhan/ownership-indexer/internal/chain/evm/rpc"
	"github.com/emperorhan/ownership-indexer/internal/contentserver"
	"github.com/emperorhan/ownership-indexer/internal/contracttype"
	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/metrics"
	"github.com/emperorhan/ownership-indexer/internal/tracing"
	"github.com/emperorhan/ownership-indexer/internal/urn"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Verdict sources, also used as metric labels.
const (
	sourceUnparsable  = "unparsable"
	sourceNoEntity    = "no_entity"
	sourceMapping     = "mapping_mismatch"
	sourceNoNetwork   = "no_network"
	sourceUnknownType = "unknown_contract"
	sourceRPC         = "rpc"
	sourceEmptyResult = "empty_result"
	sourceUndecodable = "undecodable"
)

// ParseFunc resolves an item URN to the chain asset it points to.
type ParseFunc func(raw string) (model.AssetRef, bool)

type Checker struct {
	content    contentserver.Fetcher
	registries *contracttype.Set
	callers    map[model.Network]rpc.Caller
	parse      ParseFunc
	tracer     trace.Tracer
	logger     *slog.Logger
}

type Option func(*Checker)

// WithParser replaces urn.ParseAsset.
func WithParser(fn ParseFunc) Option {
	return func(c *Checker) { c.parse = fn }
}

func NewChecker(
	content contentserver.Fetcher,
	registries *contracttype.Set,
	callers map[model.Network]rpc.Caller,
	logger *slog.Logger,
	opts ...Option,
) *Checker {
	c := &Checker{
		content:    content,
		registries: registries,
		callers:    callers,
		parse:      urn.ParseAsset,
		tracer:     tracing.Tracer("onchain"),
		logger:     logger.With("component", "onchain_checker"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// candidate is one parsable input item still travelling through the steps.
type candidate struct {
	index int
	asset model.AssetRef
}

// CheckItems returns one verdict per input URN, in input order. Parse,
// mapping and classification failures resolve to false. A failed RPC
// round-trip, content fetch or classification probe is returned as error.
func (c *Checker) CheckItems(ctx context.Context, address string, urns []string) (verdicts []bool, err error) {
	verdicts = make([]bool, len(urns))
	if len(urns) == 0 {
		return verdicts, nil
	}
	owner := model.NormalizeAddress(address)

	ctx, span := tracing.Start(ctx, c.tracer, "onchain.check_items", "address", owner)
	defer func() { tracing.End(span, err) }()

	candidates := make([]candidate, 0, len(urns))
	for i, raw := range urns {
		asset, ok := c.parse(raw)
		if !ok {
			record(sourceUnparsable, false)
			continue
		}
		asset.ContractAddress = model.NormalizeAddress(asset.ContractAddress)
		candidates = append(candidates, candidate{index: i, asset: asset})
	}
	if len(candidates) == 0 {
		return verdicts, nil
	}

	entities, err := c.fetchEntities(ctx, candidates)
	if err != nil {
		return nil, err
	}

	candidates = c.filterByMapping(candidates, entities)
	candidates = c.filterByNetwork(candidates)
	if len(candidates) == 0 {
		return verdicts, nil
	}

	// Only items that survived the mapping check are classified, so a
	// rejected item never costs an RPC call.
	if err := c.classify(ctx, candidates); err != nil {
		return nil, err
	}
	candidates = c.filterByContractType(candidates)
	if len(candidates) == 0 {
		return verdicts, nil
	}

	if err := c.checkOwnership(ctx, owner, candidates, verdicts); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// fetchEntities loads the item definition of every distinct asset URN.
func (c *Checker) fetchEntities(ctx context.Context, candidates []candidate) (map[string]*model.Entity, error) {
	pointers := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, cand := range candidates {
		if _, dup := seen[cand.asset.AssetURN]; dup {
			continue
		}
		seen[cand.asset.AssetURN] = struct{}{}
		pointers = append(pointers, cand.asset.AssetURN)
	}

	entities, err := c.content.ActiveEntities(ctx, pointers)
	if err != nil {
		return nil, fmt.Errorf("fetch item definitions: %w", err)
	}

	byPointer := make(map[string]*model.Entity, len(pointers))
	for _, pointer := range pointers {
		for i := range entities {
			if entities[i].HasPointer(pointer) {
				byPointer[pointer] = &entities[i]
				break
			}
		}
	}
	return byPointer, nil
}

func (c *Checker) filterByMapping(candidates []candidate, entities map[string]*model.Entity) []candidate {
	kept := candidates[:0]
	for _, cand := range candidates {
		entity, ok := entities[cand.asset.AssetURN]
		if !ok {
			record(sourceNoEntity, false)
			continue
		}
		if !entity.Metadata.Mappings.Includes(cand.asset.Network, cand.asset.ContractAddress, cand.asset.TokenID) {
			c.logger.Debug("item mapping does not include asset",
				"asset_urn", cand.asset.AssetURN,
				"network", cand.asset.Network.String(),
				"contract", cand.asset.ContractAddress,
				"token_id", cand.asset.TokenID,
			)
			record(sourceMapping, false)
			continue
		}
		kept = append(kept, cand)
	}
	return kept
}

// filterByNetwork drops items of networks with no configured RPC endpoint.
func (c *Checker) filterByNetwork(candidates []candidate) []candidate {
	kept := candidates[:0]
	for _, cand := range candidates {
		if c.registries.For(cand.asset.Network) == nil || c.callers[cand.asset.Network] == nil {
			record(sourceNoNetwork, false)
			continue
		}
		kept = append(kept, cand)
	}
	return kept
}

// classify runs Classify once per network over the distinct contracts.
func (c *Checker) classify(ctx context.Context, candidates []candidate) error {
	byNetwork := groupContracts(candidates)
	g, gctx := errgroup.WithContext(ctx)
	for network, contracts := range byNetwork {
		network, contracts := network, contracts
		registry := c.registries.For(network)
		if registry == nil {
			continue
		}
		g.Go(func() error {
			if err := registry.Classify(gctx, contracts); err != nil {
				return fmt.Errorf("classify contracts on %s: %w", network, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func groupContracts(candidates []candidate) map[model.Network][]string {
	out := make(map[model.Network][]string)
	seen := make(map[model.Network]map[string]struct{})
	for _, cand := range candidates {
		n := cand.asset.Network
		if seen[n] == nil {
			seen[n] = make(map[string]struct{})
		}
		if _, dup := seen[n][cand.asset.ContractAddress]; dup {
			continue
		}
		seen[n][cand.asset.ContractAddress] = struct{}{}
		out[n] = append(out[n], cand.asset.ContractAddress)
	}
	return out
}

func (c *Checker) filterByContractType(candidates []candidate) []candidate {
	kept := candidates[:0]
	for _, cand := range candidates {
		if c.registries.For(cand.asset.Network).IsUnknown(cand.asset.ContractAddress) {
			record(sourceUnknownType, false)
			continue
		}
		kept = append(kept, cand)
	}
	return kept
}

// checkOwnership sends one eth_call batch per network, networks in parallel,
// and writes verdicts by input index.
func (c *Checker) checkOwnership(ctx context.Context, owner string, candidates []candidate, verdicts []bool) error {
	byNetwork := make(map[model.Network][]candidate)
	for _, cand := range candidates {
		byNetwork[cand.asset.Network] = append(byNetwork[cand.asset.Network], cand)
	}

	g, gctx := errgroup.WithContext(ctx)
	for network, group := range byNetwork {
		group := group
		registry := c.registries.For(network)
		caller := c.callers[network]
		g.Go(func() error {
			return c.checkNetwork(gctx, owner, registry, caller, group, verdicts)
		})
	}
	return g.Wait()
}

// checkNetwork writes only the verdict slots of its own candidates, so
// concurrent networks never touch the same index.
func (c *Checker) checkNetwork(
	ctx context.Context,
	owner string,
	registry *contracttype.Registry,
	caller rpc.Caller,
	group []candidate,
	verdicts []bool,
) (err error) {
	ctx, span := tracing.Start(ctx, c.tracer, "onchain.rpc_batch", "network", registry.Network().String())
	defer func() { tracing.End(span, err) }()

	calls := make([]rpc.CallMsg, 0, len(group))
	erc721 := make([]bool, 0, len(group))
	sent := make([]candidate, 0, len(group))
	for _, cand := range group {
		tokenID, ok := erc.ParseTokenID(cand.asset.TokenID)
		if !ok {
			c.logger.Debug("unparsable token id", "asset_urn", cand.asset.AssetURN, "token_id", cand.asset.TokenID)
			record(sourceUnparsable, false)
			continue
		}

		var data string
		is721 := registry.IsERC721(cand.asset.ContractAddress)
		if is721 {
			data, err = erc.OwnerOfData(tokenID)
		} else {
			data, err = erc.BalanceOfData(owner, tokenID)
		}
		if err != nil {
			return fmt.Errorf("build call for %s: %w", cand.asset.AssetURN, err)
		}
		calls = append(calls, rpc.CallMsg{To: cand.asset.ContractAddress, Data: data})
		erc721 = append(erc721, is721)
		sent = append(sent, cand)
	}
	if len(calls) == 0 {
		return nil
	}

	results, err := caller.EthCallBatch(ctx, calls)
	if err != nil {
		return fmt.Errorf("ownership batch on %s: %w", registry.Network(), err)
	}
	if len(results) != len(calls) {
		return fmt.Errorf("ownership batch on %s: got %d results for %d calls", registry.Network(), len(results), len(calls))
	}

	for i, cand := range sent {
		verdicts[cand.index] = c.interpret(owner, erc721[i], results[i])
	}
	return nil
}

func (c *Checker) interpret(owner string, erc721 bool, res rpc.CallResult) bool {
	if res.Err != nil || len(res.Data) == 0 {
		record(sourceEmptyResult, false)
		return false
	}

	var owned bool
	if erc721 {
		recovered, err := erc.DecodeOwner(res.Data)
		if err != nil {
			record(sourceUndecodable, false)
			return false
		}
		owned = recovered == owner
	} else {
		balance, err := erc.DecodeBalance(res.Data)
		if err != nil {
			record(sourceUndecodable, false)
			return false
		}
		owned = balance.Cmp(big.NewInt(0)) > 0
	}
	record(sourceRPC, owned)
	return owned
}

func record(source string, owned bool) {
	label := "false"
	if owned {
		label = "true"
	}
	metrics.OnChainVerdicts.WithLabelValues(source, label).Inc()
}
