package contract

import (
	"crypto/x509"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Test doubles for the Fabric transaction context. The stub keeps world
// state in a plain map so a single stub shared across contexts reproduces
// the ledger's serialized, totally-ordered call semantics.

const compositeKeySep = "\x00"

type recordedEvent struct {
	name    string
	payload []byte
}

type mockStub struct {
	shim.ChaincodeStubInterface

	state  map[string][]byte
	events []recordedEvent
	txTime time.Time
}

func newMockStub() *mockStub {
	return &mockStub{
		state:  map[string][]byte{},
		txTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (ms *mockStub) GetState(key string) ([]byte, error) {
	value, ok := ms.state[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (ms *mockStub) PutState(key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	ms.state[key] = stored
	return nil
}

func (ms *mockStub) DelState(key string) error {
	delete(ms.state, key)
	return nil
}

func (ms *mockStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	key := compositeKeySep + objectType + compositeKeySep
	for _, attr := range attributes {
		key += attr + compositeKeySep
	}
	return key, nil
}

func (ms *mockStub) GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	prefix, _ := ms.CreateCompositeKey(objectType, keys)
	matched := []string{}
	for key := range ms.state {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)

	results := make([]*queryresult.KV, 0, len(matched))
	for _, key := range matched {
		value, _ := ms.GetState(key)
		results = append(results, &queryresult.KV{Key: key, Value: value})
	}
	return &mockStateIterator{results: results}, nil
}

func (ms *mockStub) SetEvent(name string, payload []byte) error {
	ms.events = append(ms.events, recordedEvent{name: name, payload: payload})
	return nil
}

func (ms *mockStub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return timestamppb.New(ms.txTime), nil
}

func (ms *mockStub) lastEvent() *recordedEvent {
	if len(ms.events) == 0 {
		return nil
	}
	return &ms.events[len(ms.events)-1]
}

type mockStateIterator struct {
	results []*queryresult.KV
	pos     int
}

func (it *mockStateIterator) HasNext() bool {
	return it.pos < len(it.results)
}

func (it *mockStateIterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, fmt.Errorf("no more items")
	}
	kv := it.results[it.pos]
	it.pos++
	return kv, nil
}

func (it *mockStateIterator) Close() error {
	return nil
}

type mockClientIdentity struct {
	id    string
	mspID string
}

func (mc *mockClientIdentity) GetID() (string, error)    { return mc.id, nil }
func (mc *mockClientIdentity) GetMSPID() (string, error) { return mc.mspID, nil }
func (mc *mockClientIdentity) GetAttributeValue(attrName string) (string, bool, error) {
	return "", false, nil
}
func (mc *mockClientIdentity) AssertAttributeValue(attrName, attrValue string) error {
	return nil
}
func (mc *mockClientIdentity) GetX509Certificate() (*x509.Certificate, error) {
	return nil, nil
}

// txStub layers Fabric's transaction read semantics over mockStub: writes
// land in a write set that GetState and range queries cannot see, and reach
// world state only when commit is called. One chaincode invocation per
// commit reproduces what the contract observes on a real ledger.
type txStub struct {
	*mockStub

	writeSet map[string][]byte
	delSet   map[string]bool
}

func newTxStub() *txStub {
	return &txStub{
		mockStub: newMockStub(),
		writeSet: map[string][]byte{},
		delSet:   map[string]bool{},
	}
}

func (ts *txStub) PutState(key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	ts.writeSet[key] = stored
	delete(ts.delSet, key)
	return nil
}

func (ts *txStub) DelState(key string) error {
	delete(ts.writeSet, key)
	ts.delSet[key] = true
	return nil
}

// commit applies the buffered write set to world state.
func (ts *txStub) commit() {
	for key, value := range ts.writeSet {
		ts.mockStub.state[key] = value
	}
	for key := range ts.delSet {
		delete(ts.mockStub.state, key)
	}
	ts.writeSet = map[string][]byte{}
	ts.delSet = map[string]bool{}
}

type mockTransactionContext struct {
	stub     shim.ChaincodeStubInterface
	identity *mockClientIdentity
}

func (mt *mockTransactionContext) GetStub() shim.ChaincodeStubInterface { return mt.stub }
func (mt *mockTransactionContext) GetClientIdentity() cid.ClientIdentity {
	return mt.identity
}

// ctxWithCaller binds a caller identity to a shared stub, mimicking
// consecutive transactions submitted by different identities.
func ctxWithCaller(stub shim.ChaincodeStubInterface, caller string) *mockTransactionContext {
	return &mockTransactionContext{
		stub:     stub,
		identity: &mockClientIdentity{id: caller, mspID: "TestOrgMSP"},
	}
}

// Identities used throughout the tests.
const (
	idAdmin = "x509::CN=admin::OU=admin::O=TestOrg"
	idMod   = "x509::CN=mod::OU=client::O=TestOrg"
	idAlice = "x509::CN=alice::OU=client::O=TestOrg"
	idBob   = "x509::CN=bob::OU=client::O=TestOrg"
	idCarol = "x509::CN=carol::OU=client::O=TestOrg"
	idStran = "x509::CN=stranger::OU=client::O=TestOrg"
)

// setupRegistry bootstraps a fresh registry with idAdmin as admin and idMod
// as moderator.
func setupRegistry(t *testing.T) (*TrustRegistrySmartContract, *mockStub) {
	t.Helper()
	s := NewTrustRegistrySmartContract()
	stub := newMockStub()
	require.NoError(t, s.BootstrapRegistry(ctxWithCaller(stub, idAdmin)))
	require.NoError(t, s.AssignRole(ctxWithCaller(stub, idAdmin), idMod, "moderator"))
	return s, stub
}

// mustRegister registers a domain for caller with a valid proof token.
func mustRegister(t *testing.T, s *TrustRegistrySmartContract, stub *mockStub, caller, name, metadata string) {
	t.Helper()
	token := ExpectedProofToken(name, caller)
	require.NoError(t, s.RegisterDomain(ctxWithCaller(stub, caller), name, metadata, token))
}
