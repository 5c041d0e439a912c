package relayer

import (
	"context"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/l33labs/merkle-distributor/distributor/pkg/metrics"
)

// ChainRPC is the slice of the Solana RPC surface the relayer needs. It is
// satisfied by *rpc.Client from solana-go; tests substitute a mock.
type ChainRPC interface {
	GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error)
	GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetTokenAccountBalanceResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
}

// Client wraps the solana-go RPC client with request metrics.
type Client struct {
	rpc *solanarpc.Client
}

func NewClient(endpoint string) *Client {
	return &Client{rpc: solanarpc.New(endpoint)}
}

func observe(method string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RPCRequestsTotal.WithLabelValues(method, status).Inc()
}

func (c *Client) GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, commitment)
	observe("getLatestBlockhash", err)
	return out, err
}

func (c *Client) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	out, err := c.rpc.GetAccountInfo(ctx, account)
	observe("getAccountInfo", err)
	return out, err
}

func (c *Client) GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
	out, err := c.rpc.GetMultipleAccounts(ctx, accounts...)
	observe("getMultipleAccounts", err)
	return out, err
}

func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetTokenAccountBalanceResult, error) {
	out, err := c.rpc.GetTokenAccountBalance(ctx, account, commitment)
	observe("getTokenAccountBalance", err)
	return out, err
}

func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, opts)
	observe("sendTransaction", err)
	return sig, err
}

func (c *Client) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	out, err := c.rpc.GetSignatureStatuses(ctx, searchTransactionHistory, transactionSignatures...)
	observe("getSignatureStatuses", err)
	return out, err
}

var _ ChainRPC = (*Client)(nil)
