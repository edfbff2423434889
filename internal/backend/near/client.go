// Package near implements the service.Service interface against a task
// contract deployed on NEAR.
//
// Reads are view calls; create_task and delete_task_by_id are function-call
// transactions signed with the account's access key and submitted with
// broadcast_tx_commit.
package near

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"tasktracker/internal/logging"
	"tasktracker/internal/service"
)

const (
	// APITimeout bounds view calls and nonce lookups.
	APITimeout = 10 * time.Second

	// CommitTimeout bounds broadcast_tx_commit, which waits for execution.
	CommitTimeout = 60 * time.Second
)

// Contract method names.
const (
	methodCreateTask   = "create_task"
	methodDeleteTask   = "delete_task_by_id"
	methodGetUserTasks = "get_user_tasks"
	methodGetUserTotal = "get_user_total_task"
)

// Options configures a Client.
type Options struct {
	// RPCURL is the JSON-RPC endpoint.
	RPCURL string

	// ContractID is the account the task contract is deployed to.
	ContractID string

	// Gas is attached to change calls.
	Gas uint64

	// APIKey, if set, is sent as a bearer token.
	APIKey string

	// HTTPClient overrides the transport (for testing).
	HTTPClient *http.Client

	Logger *log.Logger
}

// Client implements service.Service using a NEAR contract.
type Client struct {
	rpc        *rpcClient
	contractID string
	gas        uint64
	signer     *Signer
	log        *log.Logger

	// txMu serializes change calls so consecutive transactions from the same
	// access key use increasing nonces.
	txMu sync.Mutex
}

// New creates a contract client. signer may be nil, in which case only view
// calls are possible.
func New(ctx context.Context, opts Options, signer *Signer) (*Client, error) {
	if opts.RPCURL == "" {
		return nil, errors.New("near: rpc url required")
	}
	if opts.ContractID == "" {
		return nil, errors.New("near: contract_id not configured")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.APIKey != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.APIKey,
			TokenType:   "Bearer",
		}))
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	gas := opts.Gas
	if gas == 0 {
		gas = 30_000_000_000_000
	}

	return &Client{
		rpc:        &rpcClient{url: opts.RPCURL, http: httpClient},
		contractID: opts.ContractID,
		gas:        gas,
		signer:     signer,
		log:        logger.WithPrefix("near"),
	}, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask) (string, error) {
	raw, err := c.change(ctx, methodCreateTask, task)
	if err != nil {
		return "", wrapError(err)
	}
	if len(raw) == 0 {
		return "", nil
	}

	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", fmt.Errorf("create_task returned %q, expected a task id", truncate(string(raw), 40))
	}
	return id, nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	_, err := c.change(ctx, methodDeleteTask, map[string]string{"task_id": taskID})
	return wrapError(err)
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context, accountID string) ([]service.Task, error) {
	var tasks []service.Task
	if err := c.view(ctx, methodGetUserTasks, map[string]string{"account_id": accountID}, &tasks); err != nil {
		return nil, wrapError(err)
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// CountTasks implements service.Service.
func (c *Client) CountTasks(ctx context.Context, accountID string) (int, error) {
	var n json.Number
	if err := c.view(ctx, methodGetUserTotal, map[string]string{"account_id": accountID}, &n); err != nil {
		return 0, wrapError(err)
	}
	count, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("get_user_total_task returned %q: %w", n, err)
	}
	return int(count), nil
}

type viewResult struct {
	Raw   []int    `json:"result"`
	Logs  []string `json:"logs"`
	Error string   `json:"error"`
}

// view runs a read-only contract method and decodes its JSON result.
func (c *Client) view(ctx context.Context, method string, args, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return err
	}

	var res viewResult
	err = c.rpc.call(ctx, "query", map[string]any{
		"request_type": "call_function",
		"finality":     "final",
		"account_id":   c.contractID,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(argsJSON),
	}, &res)
	if err != nil {
		return err
	}
	if res.Error != "" {
		return &ContractError{Method: method, Message: res.Error}
	}

	raw := make([]byte, len(res.Raw))
	for i, b := range res.Raw {
		raw[i] = byte(b)
	}
	c.log.Debug("view call", "method", method, "bytes", len(raw))

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

type accessKeyView struct {
	Nonce     uint64 `json:"nonce"`
	BlockHash string `json:"block_hash"`
	Error     string `json:"error"`
}

type txOutcome struct {
	Status struct {
		SuccessValue *string         `json:"SuccessValue"`
		Failure      json.RawMessage `json:"Failure"`
	} `json:"status"`
	Transaction struct {
		Hash string `json:"hash"`
	} `json:"transaction"`
}

// change signs and submits a function call to the contract and returns the
// decoded SuccessValue bytes.
func (c *Client) change(ctx context.Context, method string, args any) ([]byte, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("%w: no access key (run: tasktracker login)", service.ErrUnauthorized)
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	key, err := c.accessKey(ctx)
	if err != nil {
		return nil, err
	}
	blockHash, err := decodeHash(key.BlockHash)
	if err != nil {
		return nil, err
	}

	tx := &transaction{
		SignerID:   c.signer.AccountID,
		PublicKey:  c.signer.PublicKey,
		Nonce:      key.Nonce + 1,
		ReceiverID: c.contractID,
		BlockHash:  blockHash,
		Actions: []functionCall{{
			MethodName: method,
			Args:       argsJSON,
			Gas:        c.gas,
			Deposit:    big.NewInt(0),
		}},
	}
	signed := tx.sign(c.signer)

	commitCtx, cancel := context.WithTimeout(ctx, CommitTimeout)
	defer cancel()

	c.log.Debug("submitting transaction", "method", method, "nonce", tx.Nonce)
	var outcome txOutcome
	err = c.rpc.call(commitCtx, "broadcast_tx_commit", []string{
		base64.StdEncoding.EncodeToString(signed),
	}, &outcome)
	if err != nil {
		return nil, err
	}

	if len(outcome.Status.Failure) > 0 && string(outcome.Status.Failure) != "null" {
		return nil, newFailureError(method, outcome.Status.Failure)
	}
	if outcome.Status.SuccessValue == nil {
		return nil, fmt.Errorf("%s: transaction %s has no outcome", method, outcome.Transaction.Hash)
	}
	c.log.Debug("transaction executed", "method", method, "hash", outcome.Transaction.Hash)

	value, err := base64.StdEncoding.DecodeString(*outcome.Status.SuccessValue)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid SuccessValue: %w", method, err)
	}
	return value, nil
}

func (c *Client) accessKey(ctx context.Context) (accessKeyView, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var key accessKeyView
	err := c.rpc.call(ctx, "query", map[string]any{
		"request_type": "view_access_key",
		"finality":     "final",
		"account_id":   c.signer.AccountID,
		"public_key":   c.signer.PublicKeyString(),
	}, &key)
	if err != nil {
		return key, err
	}
	if key.Error != "" {
		// Older nodes report a missing key in the result instead of an error.
		return key, &RPCError{Message: key.Error, Cause: &rpcCause{Name: "UNKNOWN_ACCESS_KEY"}}
	}
	return key, nil
}

// ContractError reports a contract method that failed during execution.
type ContractError struct {
	Method  string
	Message string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Method, e.Message)
}

// newFailureError extracts the execution error of a failed transaction,
// falling back to the raw failure JSON.
func newFailureError(method string, failure json.RawMessage) error {
	var f struct {
		ActionError struct {
			Kind struct {
				FunctionCallError struct {
					ExecutionError string `json:"ExecutionError"`
				} `json:"FunctionCallError"`
			} `json:"kind"`
		} `json:"ActionError"`
	}
	if err := json.Unmarshal(failure, &f); err == nil {
		if msg := f.ActionError.Kind.FunctionCallError.ExecutionError; msg != "" {
			return &ContractError{Method: method, Message: msg}
		}
	}
	return &ContractError{Method: method, Message: string(failure)}
}

// wrapError wraps RPC errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.CauseName() {
		case "UNKNOWN_ACCESS_KEY", "INVALID_ACCOUNT", "UNKNOWN_ACCOUNT":
			return fmt.Errorf("%w: access key not found on chain (run: tasktracker login)", service.ErrUnauthorized)
		case "TIMEOUT_ERROR":
			return service.ErrTimeout
		case "NO_CONTRACT_CODE":
			return fmt.Errorf("%w: no contract deployed at the configured contract_id", service.ErrNotFound)
		}
	}

	var contractErr *ContractError
	if errors.As(err, &contractErr) && strings.Contains(strings.ToLower(contractErr.Message), "not found") {
		return fmt.Errorf("%w: %s", service.ErrNotFound, contractErr.Message)
	}

	return err
}
