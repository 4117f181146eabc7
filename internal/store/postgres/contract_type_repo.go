package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
)

// ContractTypeRepo persists ERC classifications learned by the contract
// registry. Unknown is rejected.
type ContractTypeRepo struct {
	db *DB
}

func NewContractTypeRepo(db *DB) *ContractTypeRepo {
	return &ContractTypeRepo{db: db}
}

func (r *ContractTypeRepo) LoadAll(ctx context.Context, network model.Network) (map[string]model.ContractType, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT contract_address, contract_type
		FROM contract_types
		WHERE network = $1
	`, network.String())
	if err != nil {
		return nil, fmt.Errorf("load contract types: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.ContractType)
	for rows.Next() {
		var addr, typ string
		if err := rows.Scan(&addr, &typ); err != nil {
			return nil, fmt.Errorf("scan contract type: %w", err)
		}
		if t := model.ParseContractType(typ); t != model.ContractTypeUnknown {
			out[strings.ToLower(addr)] = t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contract types: %w", err)
	}
	return out, nil
}

func (r *ContractTypeRepo) Save(ctx context.Context, network model.Network, contract string, t model.ContractType) error {
	if t == model.ContractTypeUnknown {
		return fmt.Errorf("save contract type %s: unknown is not persisted", contract)
	}
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contract_types (network, contract_address, contract_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (network, contract_address) DO UPDATE SET
			contract_type = EXCLUDED.contract_type,
			updated_at = now()
	`, network.String(), strings.ToLower(contract), t.String())
	if err != nil {
		return fmt.Errorf("save contract type %s: %w", contract, err)
	}
	return nil
}
