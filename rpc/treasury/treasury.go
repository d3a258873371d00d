/*
Package treasury provides RPC wrappers for the TreasuryVault contract.

Safe methods are encapsulated into ContractReader structure while Contract provides
various methods to perform state-changing calls. Deposits are regular GAS
transfers to the vault, they're sent via the GAS NEP-17 interface.
*/
package treasury

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Method and event names of the contract.
const (
	ownerMethod             = "owner"
	balanceMethod           = "balance"
	withdrawMethod          = "withdraw"
	transferOwnershipMethod = "transferOwnership"

	DepositEventName              = "Deposit"
	OwnershipTransferredEventName = "OwnershipTransferred"
)

var (
	// ErrInvalidAccount is returned when a zero account is passed as an
	// owner or recipient, the contract rejects those.
	ErrInvalidAccount = errors.New("invalid account")
	// ErrInvalidAmount is returned for non-positive amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker
	nep17.Actor

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract provides full TreasuryVault interface, both safe and state-changing methods.
type Contract struct {
	ContractReader

	actor Actor
	gas   *nep17.Token
}

// DepositEvent represents "Deposit" event emitted by the contract.
type DepositEvent struct {
	From   util.Uint160
	Amount *big.Int
}

// OwnershipTransferredEvent represents "OwnershipTransferred" event emitted
// by the contract.
type OwnershipTransferredEvent struct {
	PreviousOwner util.Uint160
	NewOwner      util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{*NewReader(actor, hash), actor, nep17.New(actor, gas.Hash)}
}

// Hash returns the vault contract hash.
func (c *ContractReader) Hash() util.Uint160 {
	return c.hash
}

// Owner invokes `owner` method of contract.
func (c *ContractReader) Owner() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, ownerMethod))
}

// Balance invokes `balance` method of contract, it returns the amount of GAS
// (in fractions) held by the vault.
func (c *ContractReader) Balance() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, balanceMethod))
}

// Deposit creates and sends a transaction that transfers amount of GAS from
// the given account to the vault. The action is successful when the
// transaction ends in HALT state. The returned values are transaction hash,
// its ValidUntilBlock value and an error if any.
func (c *Contract) Deposit(from util.Uint160, amount *big.Int) (util.Uint256, uint32, error) {
	if err := checkAmount(amount); err != nil {
		return util.Uint256{}, 0, err
	}
	return c.gas.Transfer(from, c.hash, amount, nil)
}

// DepositTransaction creates a deposit transaction. This transaction is
// signed, but not sent to the network, instead it's returned to the caller.
func (c *Contract) DepositTransaction(from util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return c.gas.TransferTransaction(from, c.hash, amount, nil)
}

// DepositUnsigned creates a deposit transaction. This transaction is not
// signed and just returned to the caller.
func (c *Contract) DepositUnsigned(from util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return c.gas.TransferUnsigned(from, c.hash, amount, nil)
}

// Withdraw creates and sends a transaction invoking `withdraw` method of the
// contract. It must be signed by the vault owner. The action is successful
// when transaction ends in HALT state. The returned values are transaction
// hash, its ValidUntilBlock value and an error if any.
func (c *Contract) Withdraw(recipient util.Uint160, amount *big.Int) (util.Uint256, uint32, error) {
	if err := checkWithdraw(recipient, amount); err != nil {
		return util.Uint256{}, 0, err
	}
	return c.actor.SendCall(c.hash, withdrawMethod, recipient, amount)
}

// WithdrawTransaction creates a transaction invoking `withdraw` method of the
// contract. This transaction is signed, but not sent to the network, instead
// it's returned to the caller.
func (c *Contract) WithdrawTransaction(recipient util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	if err := checkWithdraw(recipient, amount); err != nil {
		return nil, err
	}
	return c.actor.MakeCall(c.hash, withdrawMethod, recipient, amount)
}

// WithdrawUnsigned creates a transaction invoking `withdraw` method of the
// contract. This transaction is not signed and just returned to the caller.
func (c *Contract) WithdrawUnsigned(recipient util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	if err := checkWithdraw(recipient, amount); err != nil {
		return nil, err
	}
	return c.actor.MakeUnsignedCall(c.hash, withdrawMethod, nil, recipient, amount)
}

// TransferOwnership creates and sends a transaction invoking
// `transferOwnership` method of the contract. It must be signed by the current
// owner. The returned values are transaction hash, its ValidUntilBlock value
// and an error if any.
func (c *Contract) TransferOwnership(newOwner util.Uint160) (util.Uint256, uint32, error) {
	if newOwner.Equals(util.Uint160{}) {
		return util.Uint256{}, 0, ErrInvalidAccount
	}
	return c.actor.SendCall(c.hash, transferOwnershipMethod, newOwner)
}

// TransferOwnershipTransaction creates a transaction invoking
// `transferOwnership` method of the contract. This transaction is signed,
// but not sent to the network, instead it's returned to the caller.
func (c *Contract) TransferOwnershipTransaction(newOwner util.Uint160) (*transaction.Transaction, error) {
	if newOwner.Equals(util.Uint160{}) {
		return nil, ErrInvalidAccount
	}
	return c.actor.MakeCall(c.hash, transferOwnershipMethod, newOwner)
}

// TransferOwnershipUnsigned creates a transaction invoking
// `transferOwnership` method of the contract. This transaction is not signed
// and just returned to the caller.
func (c *Contract) TransferOwnershipUnsigned(newOwner util.Uint160) (*transaction.Transaction, error) {
	if newOwner.Equals(util.Uint160{}) {
		return nil, ErrInvalidAccount
	}
	return c.actor.MakeUnsignedCall(c.hash, transferOwnershipMethod, nil, newOwner)
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func checkWithdraw(recipient util.Uint160, amount *big.Int) error {
	if recipient.Equals(util.Uint160{}) {
		return ErrInvalidAccount
	}
	return checkAmount(amount)
}

// DepositEventsFromApplicationLog retrieves a set of all emitted events
// with "Deposit" name from the provided [result.ApplicationLog].
func DepositEventsFromApplicationLog(log *result.ApplicationLog) ([]*DepositEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*DepositEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != DepositEventName {
				continue
			}
			event := new(DepositEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize DepositEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to DepositEvent or
// returns an error if it's not possible to do to so.
func (e *DepositEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	e.From, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field From: %w", err)
	}
	e.Amount, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}
	return nil
}

// OwnershipTransferredEventsFromApplicationLog retrieves a set of all emitted
// events with "OwnershipTransferred" name from the provided [result.ApplicationLog].
func OwnershipTransferredEventsFromApplicationLog(log *result.ApplicationLog) ([]*OwnershipTransferredEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*OwnershipTransferredEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != OwnershipTransferredEventName {
				continue
			}
			event := new(OwnershipTransferredEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize OwnershipTransferredEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to
// OwnershipTransferredEvent or returns an error if it's not possible to do to so.
func (e *OwnershipTransferredEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	e.PreviousOwner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field PreviousOwner: %w", err)
	}
	e.NewOwner, err = itemToUint160(arr[1])
	if err != nil {
		return fmt.Errorf("field NewOwner: %w", err)
	}
	return nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesBE(b)
}
