package near

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mr-tron/base58"

	"tasktracker/internal/service"
)

func testSigner(t *testing.T, account string) *Signer {
	t.Helper()
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)
	priv := ed25519.NewKeyFromSeed(seed)
	s, err := NewSigner(account, "", EncodeKey(priv))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

// fakeNode is a minimal NEAR RPC node hosting one task contract.
type fakeNode struct {
	t      *testing.T
	pub    ed25519.PublicKey
	block  [32]byte
	apiKey string

	mu       sync.Mutex
	nonce    uint64
	tasks    map[string][]service.Task
	nextID   int
	lastTx   decodedTx
	failWith string // contract panic message for the next change call
	rpcErr   *RPCError
}

type decodedTx struct {
	signer   string
	nonce    uint64
	receiver string
	method   string
	args     []byte
	gas      uint64
}

func newFakeNode(t *testing.T, pub ed25519.PublicKey) (*fakeNode, *httptest.Server) {
	n := &fakeNode{
		t:     t,
		pub:   pub,
		nonce: 41,
		tasks: map[string][]service.Task{},
	}
	copy(n.block[:], bytes.Repeat([]byte{3}, 32))
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	return n, srv
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+n.apiKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req struct {
		ID     uint64          `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		n.t.Errorf("bad request body: %v", err)
		return
	}

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if n.rpcErr != nil {
		resp["error"] = n.rpcErr
	} else {
		switch req.Method {
		case "query":
			resp["result"] = n.query(req.Params)
		case "broadcast_tx_commit":
			resp["result"] = n.commit(req.Params)
		default:
			resp["error"] = map[string]any{"code": -32601, "message": "Method not found"}
		}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) query(raw json.RawMessage) any {
	var p struct {
		RequestType string `json:"request_type"`
		MethodName  string `json:"method_name"`
		ArgsBase64  string `json:"args_base64"`
		PublicKey   string `json:"public_key"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		n.t.Errorf("query params: %v", err)
		return nil
	}

	if p.RequestType == "view_access_key" {
		if p.PublicKey != EncodeKey(n.pub) {
			return map[string]any{"error": "access key does not exist"}
		}
		return map[string]any{"nonce": n.nonce, "block_hash": base58.Encode(n.block[:])}
	}

	argsJSON, _ := base64.StdEncoding.DecodeString(p.ArgsBase64)
	var args struct {
		AccountID string `json:"account_id"`
	}
	_ = json.Unmarshal(argsJSON, &args)

	var result any
	switch p.MethodName {
	case methodGetUserTasks:
		result = n.tasks[args.AccountID]
	case methodGetUserTotal:
		result = len(n.tasks[args.AccountID])
	default:
		return map[string]any{"error": "MethodNotFound", "logs": []string{}}
	}
	return map[string]any{"result": byteInts(mustJSON(result)), "logs": []string{}}
}

func (n *fakeNode) commit(raw json.RawMessage) any {
	var params []string
	if err := json.Unmarshal(raw, &params); err != nil || len(params) != 1 {
		n.t.Errorf("broadcast params: %s", raw)
		return nil
	}
	signed, err := base64.StdEncoding.DecodeString(params[0])
	if err != nil || len(signed) < 65 {
		n.t.Errorf("broadcast payload: %v", err)
		return nil
	}

	body, sig := signed[:len(signed)-65], signed[len(signed)-64:]
	if signed[len(signed)-65] != keyTypeED25519 {
		n.t.Errorf("signature key type = %d", signed[len(signed)-65])
	}
	h := sha256.Sum256(body)
	if !ed25519.Verify(n.pub, h[:], sig) {
		n.t.Error("signature does not verify")
	}

	tx, err := decodeTx(body)
	if err != nil {
		n.t.Errorf("decoding transaction: %v", err)
		return nil
	}
	n.lastTx = tx
	n.nonce = tx.nonce
	hash := base58.Encode(h[:])

	if n.failWith != "" {
		msg := n.failWith
		n.failWith = ""
		return map[string]any{
			"status": map[string]any{"Failure": map[string]any{
				"ActionError": map[string]any{"index": 0, "kind": map[string]any{
					"FunctionCallError": map[string]any{"ExecutionError": msg},
				}},
			}},
			"transaction": map[string]any{"hash": hash},
		}
	}

	var value []byte
	switch tx.method {
	case methodCreateTask:
		var nt service.NewTask
		_ = json.Unmarshal(tx.args, &nt)
		n.nextID++
		id := fmt.Sprintf("id-%d", n.nextID)
		n.tasks[tx.signer] = append(n.tasks[tx.signer], nt.WithID(id))
		value = mustJSON(id)
	case methodDeleteTask:
		var a struct {
			TaskID string `json:"task_id"`
		}
		_ = json.Unmarshal(tx.args, &a)
		var kept []service.Task
		for _, task := range n.tasks[tx.signer] {
			if task.ID != a.TaskID {
				kept = append(kept, task)
			}
		}
		n.tasks[tx.signer] = kept
	}

	return map[string]any{
		"status":      map[string]any{"SuccessValue": base64.StdEncoding.EncodeToString(value)},
		"transaction": map[string]any{"hash": hash},
	}
}

// txReader reads back the fields written by transaction.encode. The first
// failure sticks.
type txReader struct {
	r   *bytes.Reader
	err error
}

func (r *txReader) fixed(n int) []byte {
	out := make([]byte, n)
	if r.err == nil {
		_, r.err = io.ReadFull(r.r, out)
	}
	return out
}

func (r *txReader) u32() uint32 { return binary.LittleEndian.Uint32(r.fixed(4)) }
func (r *txReader) u64() uint64 { return binary.LittleEndian.Uint64(r.fixed(8)) }
func (r *txReader) vec() []byte { return r.fixed(int(r.u32())) }

func decodeTx(b []byte) (decodedTx, error) {
	r := &txReader{r: bytes.NewReader(b)}

	var tx decodedTx
	tx.signer = string(r.vec())
	r.fixed(1 + ed25519.PublicKeySize)
	tx.nonce = r.u64()
	tx.receiver = string(r.vec())
	r.fixed(32)
	if n := r.u32(); r.err == nil && n != 1 {
		return tx, fmt.Errorf("expected 1 action, got %d", n)
	}
	if tag := r.fixed(1)[0]; r.err == nil && tag != actionFunctionCall {
		return tx, fmt.Errorf("action tag = %d", tag)
	}
	tx.method = string(r.vec())
	tx.args = r.vec()
	tx.gas = r.u64()
	r.fixed(16)
	if r.err != nil {
		return tx, r.err
	}
	if r.r.Len() != 0 {
		return tx, fmt.Errorf("%d trailing bytes", r.r.Len())
	}
	return tx, nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func byteInts(b []byte) []int {
	out := make([]int, len(b))
	for i, c := range b {
		out[i] = int(c)
	}
	return out
}

func (n *fakeNode) last() decodedTx {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastTx
}

func newTestClient(t *testing.T, url string, signer *Signer) *Client {
	t.Helper()
	c, err := New(context.Background(), Options{RPCURL: url, ContractID: "tasks.testnet"}, signer)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClient_CreateListCountDelete(t *testing.T) {
	signer := testSigner(t, "alice.testnet")
	node, srv := newFakeNode(t, signer.PublicKey)
	c := newTestClient(t, srv.URL, signer)
	ctx := context.Background()

	id, err := c.CreateTask(ctx, service.NewTask{Text: "Buy milk", Day: "Mon", Reminder: true})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if id != "id-1" {
		t.Errorf("id = %q, want id-1", id)
	}
	if node.last().nonce != 42 {
		t.Errorf("nonce = %d, want 42", node.last().nonce)
	}
	if node.last().receiver != "tasks.testnet" || node.last().signer != "alice.testnet" {
		t.Errorf("unexpected tx routing: %+v", node.last())
	}
	if node.last().gas != 30_000_000_000_000 {
		t.Errorf("gas = %d", node.last().gas)
	}

	if _, err := c.CreateTask(ctx, service.NewTask{Text: "Call mom"}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if node.last().nonce != 43 {
		t.Errorf("second nonce = %d, want 43", node.last().nonce)
	}

	tasks, err := c.ListTasks(ctx, "alice.testnet")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	want := []service.Task{
		{ID: "id-1", Text: "Buy milk", Day: "Mon", Reminder: true},
		{ID: "id-2", Text: "Call mom"},
	}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i := range want {
		if tasks[i] != want[i] {
			t.Errorf("task %d = %+v, want %+v", i, tasks[i], want[i])
		}
	}

	n, err := c.CountTasks(ctx, "alice.testnet")
	if err != nil || n != 2 {
		t.Fatalf("CountTasks = %d, %v", n, err)
	}

	if err := c.DeleteTask(ctx, "id-1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if string(node.last().args) != `{"task_id":"id-1"}` {
		t.Errorf("delete args = %s", node.last().args)
	}
	if n, _ := c.CountTasks(ctx, "alice.testnet"); n != 1 {
		t.Errorf("count after delete = %d, want 1", n)
	}
}

func TestClient_ListTasks_EmptyAccount(t *testing.T) {
	_, srv := newFakeNode(t, nil)
	c := newTestClient(t, srv.URL, nil)

	tasks, err := c.ListTasks(context.Background(), "nobody.testnet")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", tasks)
	}
}

func TestClient_ChangeWithoutSigner(t *testing.T) {
	_, srv := newFakeNode(t, nil)
	c := newTestClient(t, srv.URL, nil)

	_, err := c.CreateTask(context.Background(), service.NewTask{Text: "x"})
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_UnknownAccessKey(t *testing.T) {
	signer := testSigner(t, "alice.testnet")
	other := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{9}, 32)).Public().(ed25519.PublicKey)
	_, srv := newFakeNode(t, other)
	c := newTestClient(t, srv.URL, signer)

	err := c.DeleteTask(context.Background(), "id-1")
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_ContractFailure(t *testing.T) {
	signer := testSigner(t, "alice.testnet")
	node, srv := newFakeNode(t, signer.PublicKey)
	c := newTestClient(t, srv.URL, signer)

	node.mu.Lock()
	node.failWith = "Smart contract panicked: Task not found"
	node.mu.Unlock()
	err := c.DeleteTask(context.Background(), "missing")
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	node.mu.Lock()
	node.failWith = "Smart contract panicked: out of storage"
	node.mu.Unlock()
	_, err = c.CreateTask(context.Background(), service.NewTask{Text: "x"})
	var ce *ContractError
	if !errors.As(err, &ce) || ce.Method != methodCreateTask {
		t.Errorf("expected ContractError for create_task, got %v", err)
	}
}

func TestClient_RPCErrorMapping(t *testing.T) {
	tests := []struct {
		cause string
		want  error
	}{
		{"TIMEOUT_ERROR", service.ErrTimeout},
		{"NO_CONTRACT_CODE", service.ErrNotFound},
		{"UNKNOWN_ACCOUNT", service.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.cause, func(t *testing.T) {
			node, srv := newFakeNode(t, nil)
			node.rpcErr = &RPCError{Code: -32000, Message: "Server error", Cause: &rpcCause{Name: tt.cause}}
			c := newTestClient(t, srv.URL, nil)

			_, err := c.CountTasks(context.Background(), "alice.testnet")
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClient_APIKey(t *testing.T) {
	node, srv := newFakeNode(t, nil)
	node.apiKey = "secret"

	c, err := New(context.Background(), Options{RPCURL: srv.URL, ContractID: "tasks.testnet", APIKey: "secret"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.CountTasks(context.Background(), "alice.testnet"); err != nil {
		t.Fatalf("CountTasks with api key: %v", err)
	}

	bare := newTestClient(t, srv.URL, nil)
	if _, err := bare.CountTasks(context.Background(), "alice.testnet"); err == nil {
		t.Error("expected failure without api key")
	}
}

func TestNew_RequiresContract(t *testing.T) {
	if _, err := New(context.Background(), Options{RPCURL: "http://localhost"}, nil); err == nil {
		t.Error("expected error without contract id")
	}
	if _, err := New(context.Background(), Options{ContractID: "c"}, nil); err == nil {
		t.Error("expected error without rpc url")
	}
}
