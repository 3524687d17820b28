package blockchain

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ClientFactory manages chain and bundler clients keyed by RPC URL
type ClientFactory struct {
	evmClients     map[string]*EVMClient
	bundlerClients map[string]*BundlerClient
	mu             sync.RWMutex
}

// NewClientFactory creates a new client factory
func NewClientFactory() *ClientFactory {
	return &ClientFactory{
		evmClients:     make(map[string]*EVMClient),
		bundlerClients: make(map[string]*BundlerClient),
	}
}

// GetEVMClient returns an EVM client for the given RPC URL
// If a client already exists for the URL, it returns the cached client
func (f *ClientFactory) GetEVMClient(rpcURL string) (*EVMClient, error) {
	f.mu.RLock()
	client, ok := f.evmClients[rpcURL]
	f.mu.RUnlock()
	if ok {
		return client, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if client, ok := f.evmClients[rpcURL]; ok {
		return client, nil
	}

	newClient, err := NewEVMClient(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create EVM client: %w", err)
	}

	f.evmClients[rpcURL] = newClient
	return newClient, nil
}

// GetBundlerClient returns a bundler client for the given RPC URL, creating
// the underlying EVM client as needed
func (f *ClientFactory) GetBundlerClient(rpcURL string, entryPoint common.Address, pollInterval time.Duration) (*BundlerClient, error) {
	f.mu.RLock()
	client, ok := f.bundlerClients[rpcURL]
	f.mu.RUnlock()
	if ok {
		return client, nil
	}

	evm, err := f.GetEVMClient(rpcURL)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.bundlerClients[rpcURL]; ok {
		return client, nil
	}

	newClient, err := NewBundlerClient(rpcURL, evm, entryPoint, pollInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundler client: %w", err)
	}

	f.bundlerClients[rpcURL] = newClient
	return newClient, nil
}

// RegisterEVMClient injects/overrides cached client for a specific rpcURL.
// Useful for deterministic unit tests.
func (f *ClientFactory) RegisterEVMClient(rpcURL string, client *EVMClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evmClients[rpcURL] = client
}

// RegisterBundlerClient injects/overrides cached bundler client for a
// specific rpcURL
func (f *ClientFactory) RegisterBundlerClient(rpcURL string, client *BundlerClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundlerClients[rpcURL] = client
}
