//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/store/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractTypeRepo_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewContractTypeRepo(testDB(t))

	require.NoError(t, repo.Save(ctx, model.NetworkMatic, "0xAAAA000000000000000000000000000000000001", model.ContractTypeERC721))
	require.NoError(t, repo.Save(ctx, model.NetworkMatic, "0xaaaa000000000000000000000000000000000002", model.ContractTypeERC1155))
	require.NoError(t, repo.Save(ctx, model.NetworkMainnet, "0xaaaa000000000000000000000000000000000003", model.ContractTypeERC721))

	got, err := repo.LoadAll(ctx, model.NetworkMatic)
	require.NoError(t, err)
	assert.Equal(t, map[string]model.ContractType{
		"0xaaaa000000000000000000000000000000000001": model.ContractTypeERC721,
		"0xaaaa000000000000000000000000000000000002": model.ContractTypeERC1155,
	}, got)
}

func TestContractTypeRepo_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewContractTypeRepo(testDB(t))
	addr := "0xbbbb000000000000000000000000000000000001"

	require.NoError(t, repo.Save(ctx, model.NetworkSepolia, addr, model.ContractTypeERC721))
	require.NoError(t, repo.Save(ctx, model.NetworkSepolia, addr, model.ContractTypeERC1155))

	got, err := repo.LoadAll(ctx, model.NetworkSepolia)
	require.NoError(t, err)
	assert.Equal(t, model.ContractTypeERC1155, got[addr])
}

func TestContractTypeRepo_RejectsUnknown(t *testing.T) {
	repo := postgres.NewContractTypeRepo(testDB(t))
	err := repo.Save(context.Background(), model.NetworkAmoy, "0xcccc000000000000000000000000000000000001", model.ContractTypeUnknown)
	assert.Error(t, err)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := testDB(t)
	var count int
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT count(*) FROM schema_migrations WHERE version = '001_contract_types.up.sql'").Scan(&count))
	assert.Equal(t, 1, count)
}
