package domain

import (
	"GeoConquest/modules/kit/errx"
)

const (
	CodeInvalidUsername      errx.Code = "CONQUEST_INVALID_USERNAME"
	CodeBadCell              errx.Code = "CONQUEST_BAD_CELL"
	CodeTerritoryNotFound    errx.Code = "CONQUEST_TERRITORY_NOT_FOUND"
	CodePlayerNotFound       errx.Code = "CONQUEST_PLAYER_NOT_FOUND"
	CodeNotOwner             errx.Code = "CONQUEST_NOT_OWNER"
	CodeAlreadyOwned         errx.Code = "CONQUEST_ALREADY_OWNED"
	CodeNotAdjacent          errx.Code = "CONQUEST_NOT_ADJACENT"
	CodeInsufficientStrength errx.Code = "CONQUEST_INSUFFICIENT_STRENGTH"
	CodeInsufficientEnergy   errx.Code = "CONQUEST_INSUFFICIENT_ENERGY"
	CodeInsufficientFunds    errx.Code = "CONQUEST_INSUFFICIENT_FUNDS"
	CodeUnknownItem          errx.Code = "CONQUEST_UNKNOWN_ITEM"
	CodeItemNotOwned         errx.Code = "CONQUEST_ITEM_NOT_OWNED"
	CodeTargetNotEligible    errx.Code = "CONQUEST_TARGET_NOT_ELIGIBLE"
	CodeInvalidAmount        errx.Code = "CONQUEST_INVALID_AMOUNT"
	CodeClaimNotAllowed      errx.Code = "CONQUEST_CLAIM_NOT_ALLOWED"
	CodeEliminated           errx.Code = "CONQUEST_PLAYER_ELIMINATED"
	CodeOfflineRejected      errx.Code = "CONQUEST_OFFLINE_REJECTED"
	CodeClaimRaceLost        errx.Code = "CONQUEST_CLAIM_RACE_LOST"
	CodeStaleOwnership       errx.Code = "CONQUEST_STALE_OWNERSHIP"
	CodeStaleRules           errx.Code = "CONQUEST_STALE_RULES"
	CodeSessionNotStarted    errx.Code = "CONQUEST_SESSION_NOT_STARTED"
)

// 校验类：本地可判定，不改任何状态。
var (
	ErrInvalidUsername      = errx.NewBiz(CodeInvalidUsername, "username must be 1-32 letters, digits, spaces, '_' or '-'")
	ErrBadCell              = errx.NewBiz(CodeBadCell, "invalid sector id")
	ErrTerritoryNotFound    = errx.NewBiz(CodeTerritoryNotFound, "sector not found")
	ErrPlayerNotFound       = errx.NewBiz(CodePlayerNotFound, "player not found")
	ErrNotOwner             = errx.NewBiz(CodeNotOwner, "you do not own that sector")
	ErrAlreadyOwned         = errx.NewBiz(CodeAlreadyOwned, "that sector is already yours")
	ErrNotAdjacent          = errx.NewBiz(CodeNotAdjacent, "target is too far away")
	ErrInsufficientStrength = errx.NewBiz(CodeInsufficientStrength, "not enough troops")
	ErrInsufficientEnergy   = errx.NewBiz(CodeInsufficientEnergy, "not enough energy")
	ErrInsufficientFunds    = errx.NewBiz(CodeInsufficientFunds, "insufficient funds")
	ErrUnknownItem          = errx.NewBiz(CodeUnknownItem, "unknown item")
	ErrItemNotOwned         = errx.NewBiz(CodeItemNotOwned, "you do not have that item")
	ErrTargetNotEligible    = errx.NewBiz(CodeTargetNotEligible, "that item cannot be used there")
	ErrInvalidAmount        = errx.NewBiz(CodeInvalidAmount, "invalid amount")
	ErrClaimNotAllowed      = errx.NewBiz(CodeClaimNotAllowed, "you already hold territory")
	ErrEliminated           = errx.NewBiz(CodeEliminated, "you have been eliminated")
	ErrSessionNotStarted    = errx.NewBiz(CodeSessionNotStarted, "session not started")
)

// 冲突类：存储端的条件更新失败，需要回滚乐观状态并重新同步。
var (
	ErrClaimRaceLost  = errx.NewConflict(CodeClaimRaceLost, "sector was claimed by someone else")
	ErrStaleOwnership = errx.NewConflict(CodeStaleOwnership, "your view of the world was out of date")
	ErrStaleRules     = errx.NewConflict(CodeStaleRules, "client rules are out of date")
)

// ErrOfflineRejected 离线时被策略拒绝的操作。
var ErrOfflineRejected = errx.NewSys(CodeOfflineRejected, "action needs a connection to the world server")
