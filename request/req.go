package request

type CreateWalletReq struct {
	Chain string `json:"chain" binding:"required"`
}

type SendTxReq struct {
	Chain  string `json:"chain" binding:"required"`
	To     string `json:"to" binding:"required"`     // 0x address or ENS name
	Amount string `json:"amount" binding:"required"` // wei, base-10 integer
}

type GetBalanceReq struct {
	Chain string `form:"chain" binding:"required"`
}

type CreateWalletResp struct {
	Created    bool   `json:"created"`
	Address    string `json:"address"`
	PrivateKey string `json:"private_key,omitempty"`
	Mnemonic   string `json:"mnemonic,omitempty"`
	Notice     string `json:"notice,omitempty"`
}

type SendTxResp struct {
	Success      bool   `json:"success"`
	Code         string `json:"code,omitempty"`
	Message      string `json:"message"`
	TxHash       string `json:"tx_hash,omitempty"`
	BlockNumber  string `json:"block_number,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	ResolvedFrom string `json:"resolved_from,omitempty"`
}

type BalanceResp struct {
	Chain      string `json:"chain"`
	Symbol     string `json:"symbol"`
	Address    string `json:"address"`
	BalanceWei string `json:"balance_wei"`
	Balance    string `json:"balance"`
}

type NameProfileResp struct {
	Name          string            `json:"name"`
	Address       string            `json:"address"`
	PrimaryName   string            `json:"primary_name,omitempty"`
	IsPrimary     bool              `json:"is_primary"`
	TextRecords   map[string]string `json:"text_records"`
	CoinAddresses map[string]string `json:"coin_addresses"`
	ContentHash   string            `json:"content_hash,omitempty"`
	Summary       string            `json:"summary"`
}

type ErrorResp struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
