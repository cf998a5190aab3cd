package dto

type ClaimReq struct {
	Cell string `json:"cell"`
}

type AttackReq struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type PurchaseReq struct {
	Item string `json:"item"`
}

type UseReq struct {
	Item   string `json:"item"`
	Target string `json:"target"`
}

type TransferReq struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Amount int    `json:"amount"`
}
