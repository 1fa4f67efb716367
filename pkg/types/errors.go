package types

import "errors"

// ErrorKind groups sentinel errors by the class of failure they represent.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindAuthorization
	KindAuthentication
	KindState
	KindEconomic
	KindNotFound
	KindInconsistent
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindAuthentication:
		return "authentication"
	case KindState:
		return "state"
	case KindEconomic:
		return "economic"
	case KindNotFound:
		return "not_found"
	case KindInconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

// Validation errors.
var (
	ErrInvalidFeeRate       = errors.New("fee rate must be between 0 and 1")
	ErrInvalidGraceInterval = errors.New("grace interval must not exceed the round interval")
	ErrInvalidInterval      = errors.New("round interval must be positive")
	ErrInvalidPosition      = errors.New("invalid position")
	ErrInvalidAsset         = errors.New("invalid asset")
	ErrZeroAmount           = errors.New("bet amount must be positive")
	ErrMissingPayload       = errors.New("missing bet instruction")
	ErrInvalidPayload       = errors.New("invalid bet instruction")
	ErrUnknownOperation     = errors.New("unknown operation")
	ErrInvalidBlockTime     = errors.New("block time precedes the first round interval")
)

// Authorization errors.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")
)

// Authentication errors.
var (
	ErrInvalidViewingKey = errors.New("wrong viewing key for this address or viewing key not set")
)

// State errors.
var (
	ErrNotInitialized     = errors.New("contract not initialized")
	ErrAlreadyInitialized = errors.New("contract already initialized")
	ErrAlreadyRunning     = errors.New("genesis round already started")
	ErrPaused             = errors.New("contract is paused")
	ErrNotPaused          = errors.New("contract is not paused")
	ErrNotBettable        = errors.New("round is not bettable")
	ErrAlreadyBet         = errors.New("bet already placed for this round")
	ErrNotExecutable      = errors.New("round is not executable")
	ErrExpired            = errors.New("round expired without settlement")
	ErrStalePrice         = errors.New("oracle price is older than the round")
	ErrNotClaimable       = errors.New("round is not claimable")
	ErrAlreadyClaimed     = errors.New("bet already claimed")
)

// Economic errors.
var (
	ErrNothingToClaim = errors.New("nothing to claim")
	ErrNoFee          = errors.New("no accumulated fee to withdraw")
)

// Lookup errors.
var (
	ErrRoundNotFound = errors.New("round not found")
	ErrBetNotFound   = errors.New("bet not found")
)

// Consistency errors. A transfer left the market but the state change that
// pays for it was not stored; operators must reconcile by hand.
var (
	ErrUncommittedTransfer = errors.New("transfer sent but state change not committed")
)

var kinds = map[error]ErrorKind{
	ErrInvalidFeeRate:       KindValidation,
	ErrInvalidGraceInterval: KindValidation,
	ErrInvalidInterval:      KindValidation,
	ErrInvalidPosition:      KindValidation,
	ErrInvalidAsset:         KindValidation,
	ErrZeroAmount:           KindValidation,
	ErrMissingPayload:       KindValidation,
	ErrInvalidPayload:       KindValidation,
	ErrUnknownOperation:     KindValidation,
	ErrInvalidBlockTime:     KindValidation,
	ErrUnauthorized:         KindAuthorization,
	ErrPermissionDenied:     KindAuthorization,
	ErrInvalidViewingKey:    KindAuthentication,
	ErrNotInitialized:       KindState,
	ErrAlreadyInitialized:   KindState,
	ErrAlreadyRunning:       KindState,
	ErrPaused:               KindState,
	ErrNotPaused:            KindState,
	ErrNotBettable:          KindState,
	ErrAlreadyBet:           KindState,
	ErrNotExecutable:        KindState,
	ErrExpired:              KindState,
	ErrStalePrice:           KindState,
	ErrNotClaimable:         KindState,
	ErrAlreadyClaimed:       KindState,
	ErrNothingToClaim:       KindEconomic,
	ErrNoFee:                KindEconomic,
	ErrRoundNotFound:        KindNotFound,
	ErrBetNotFound:          KindNotFound,
	ErrUncommittedTransfer:  KindInconsistent,
}

// Kind returns the kind of the first known sentinel in err's chain.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for sentinel, kind := range kinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}
