package enums

// WalletEntryType names the ledger operation that produced a journal row.
type WalletEntryType string

const (
	WalletEntryCredit        WalletEntryType = "credit"
	WalletEntryEscrowCredit  WalletEntryType = "escrow_credit"
	WalletEntryEscrowRelease WalletEntryType = "escrow_release"
	WalletEntryDebit         WalletEntryType = "debit"
	WalletEntryPayoutEarmark WalletEntryType = "payout_earmark"
	WalletEntryPayoutUnmark  WalletEntryType = "payout_unmark"
)

var validWalletEntryTypes = []WalletEntryType{
	WalletEntryCredit,
	WalletEntryEscrowCredit,
	WalletEntryEscrowRelease,
	WalletEntryDebit,
	WalletEntryPayoutEarmark,
	WalletEntryPayoutUnmark,
}

// IsValid reports whether the value is a known WalletEntryType.
func (t WalletEntryType) IsValid() bool {
	for _, candidate := range validWalletEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// WalletReferenceType names the aggregate a journal row was written for.
type WalletReferenceType string

const (
	WalletReferenceTransaction WalletReferenceType = "transaction"
	WalletReferenceDispute     WalletReferenceType = "dispute"
	WalletReferencePayout      WalletReferenceType = "payout_request"
)
