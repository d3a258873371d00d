/*
Package treasury contains the TreasuryVault contract. It holds GAS on behalf
of a single owner: anyone can deposit by transferring GAS to the contract,
only the owner can withdraw it or hand the ownership over to another account.
*/
package treasury

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	ownerKey = "o"

	// zeroAccount is an all-zero script hash, no one can have a witness for it.
	zeroAccount = "\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"
)

// vaultState is the serialized value stored under ownerKey.
type vaultState struct {
	Owner interop.Hash160
}

// _deploy stores the initial owner passed as deployment data.
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}
	if !isValidAccount(data.(interop.Hash160)) {
		panic("invalid owner")
	}
	putOwner(storage.GetContext(), data)
}

// OnNEP17Payment accepts GAS deposits from any account.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	if !runtime.GetCallingScriptHash().Equals(gas.Hash) {
		panic("only GAS is accepted")
	}
	if amount <= 0 {
		panic("invalid amount")
	}
	runtime.Notify("Deposit", from, amount)
}

// Owner returns the current vault owner.
func Owner() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return getOwner(ctx)
}

// Balance returns the amount of GAS held by the vault.
func Balance() int {
	return gas.BalanceOf(runtime.GetExecutingScriptHash())
}

// Withdraw sends amount of GAS from the vault to the recipient. It can only be
// called by the owner.
func Withdraw(recipient interop.Hash160, amount int) {
	ctx := storage.GetReadOnlyContext()
	checkOwner(ctx)
	self := runtime.GetExecutingScriptHash()
	if !isValidAccount(recipient) || recipient.Equals(self) {
		panic("invalid recipient")
	}
	if amount <= 0 {
		panic("invalid amount")
	}
	if amount > gas.BalanceOf(self) {
		panic("insufficient funds")
	}
	if !gas.Transfer(self, recipient, amount, nil) {
		panic("transfer failed")
	}
}

// TransferOwnership makes newOwner the owner of the vault. It can only be
// called by the current owner.
func TransferOwnership(newOwner interop.Hash160) {
	if !isValidAccount(newOwner) {
		panic("invalid owner")
	}
	ctx := storage.GetContext()
	prev := checkOwner(ctx)
	putOwner(ctx, newOwner)
	runtime.Notify("OwnershipTransferred", prev, newOwner)
}

// putOwner stores the owner item as is, a type assertion to Hash160 would
// turn it into a Buffer.
func putOwner(ctx storage.Context, owner any) {
	storage.Put(ctx, ownerKey, std.Serialize([]any{owner}))
}

func getOwner(ctx storage.Context) interop.Hash160 {
	st := std.Deserialize(storage.Get(ctx, ownerKey).([]byte)).(vaultState)
	return st.Owner
}

// checkOwner panics if the transaction is not witnessed by the owner, it
// returns the owner otherwise.
func checkOwner(ctx storage.Context) interop.Hash160 {
	owner := getOwner(ctx)
	if !runtime.CheckWitness(owner) {
		panic("not the owner")
	}
	return owner
}

func isValidAccount(h interop.Hash160) bool {
	return h != nil && len(h) == interop.Hash160Len && !h.Equals(zeroAccount)
}
