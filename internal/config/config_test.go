package config

import (
	"strings"
	"testing"
)

const testProgram = "0x0101010101010101010101010101010101010101010101010101010101010101"

func setRedisEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PROGRAM_ID", testProgram)
	t.Setenv("REGISTRY_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
}

func TestLoad_RedisBackendDefaults(t *testing.T) {
	setRedisEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Port: got %d, want 3000", cfg.Server.Port)
	}
	amt, err := cfg.DefaultAmount()
	if err != nil || amt.String() != "10000000000000" {
		t.Errorf("DefaultAmount: got %v, %v", amt, err)
	}
	if cfg.Gasless.DefaultDurationSec != 3600 {
		t.Errorf("DefaultDurationSec: got %d", cfg.Gasless.DefaultDurationSec)
	}
	if cfg.Gasless.SelectPolicy != "first" {
		t.Errorf("SelectPolicy: got %q", cfg.Gasless.SelectPolicy)
	}
	if cfg.NeedsRedis() != true {
		t.Error("redis backend needs redis")
	}
}

func TestLoad_MissingProgramID(t *testing.T) {
	setRedisEnv(t)
	t.Setenv("PROGRAM_ID", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PROGRAM_ID") {
		t.Fatalf("expected PROGRAM_ID error, got %v", err)
	}
}

func TestLoad_ChainBackendRequiresKeys(t *testing.T) {
	t.Setenv("PROGRAM_ID", testProgram)
	t.Setenv("REGISTRY_BACKEND", "chain")
	t.Setenv("RPC_URL", "http://localhost:8545")
	t.Setenv("REGISTRY_CONTRACT", "0x5FbDB2315678afecb367f032d93F642f64180aa3")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "ISSUER_PRIVATE_KEY") {
		t.Fatalf("expected ISSUER_PRIVATE_KEY error, got %v", err)
	}

	t.Setenv("ISSUER_PRIVATE_KEY", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	_, err = Load()
	if err == nil || !strings.Contains(err.Error(), "CHAIN_ID") {
		t.Fatalf("expected CHAIN_ID error, got %v", err)
	}

	t.Setenv("CHAIN_ID", "31337")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chain.ChainID != 31337 {
		t.Errorf("ChainID: got %d", cfg.Chain.ChainID)
	}
	if cfg.NeedsRedis() {
		t.Error("chain backend without operators should not need redis")
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	setRedisEnv(t)
	t.Setenv("REGISTRY_BACKEND", "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoad_InvalidSelectPolicy(t *testing.T) {
	setRedisEnv(t)
	t.Setenv("SELECT_POLICY", "newest")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown select policy")
	}
}

func TestOperators(t *testing.T) {
	setRedisEnv(t)
	t.Setenv("OPERATOR_ADDRESSES", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266, 0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ops, err := cfg.Operators()
	if err != nil {
		t.Fatalf("Operators: %v", err)
	}
	if len(ops) != 2 || ops[1].Hex() != "0x70997970C51812dc3A010C7d01b50e0d17dc79C8" {
		t.Errorf("Operators: got %v", ops)
	}

	t.Setenv("OPERATOR_ADDRESSES", "0xnotanaddress")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed operator address")
	}
}
