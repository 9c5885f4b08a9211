// Package transport exposes the analyzer over HTTP and WebSocket.
package transport

import (
	"time"

	"solana-sentinel/internal/domain"
)

// AnalysisResponse is the wire shape of a composite analysis.
type AnalysisResponse struct {
	Address     string             `json:"address"`
	Name        string             `json:"name"`
	Symbol      string             `json:"symbol"`
	Supply      string             `json:"supply"`
	Decimals    int                `json:"decimals"`
	RiskScore   int                `json:"riskScore"`
	RiskLevel   string             `json:"riskLevel"`
	RiskFactors []string           `json:"riskFactors"`
	LLMVerdict  *domain.LLMVerdict `json:"llmVerdict,omitempty"`
	AnalyzedAt  time.Time          `json:"analyzedAt"`

	MintAuthority   *string `json:"mintAuthority"`
	FreezeAuthority *string `json:"freezeAuthority"`
	TokenAgeDays    *int    `json:"tokenAgeDays"`
	CreatorAddress  *string `json:"creatorAddress"`
}

// TransactionResponse is the wire shape of an observed transaction.
type TransactionResponse struct {
	Signature   string `json:"signature"`
	Timestamp   int64  `json:"timestamp"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	FromAddress string `json:"fromAddress,omitempty"`
	ToAddress   string `json:"toAddress,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

// toAnalysisResponse converts a composite analysis to the wire shape.
func toAnalysisResponse(a *domain.CompositeAnalysis) AnalysisResponse {
	return AnalysisResponse{
		Address:         a.Facts.Address,
		Name:            a.Facts.Name,
		Symbol:          a.Facts.Symbol,
		Supply:          a.Facts.Supply,
		Decimals:        a.Facts.Decimals,
		RiskScore:       a.RiskScore,
		RiskLevel:       a.RiskLevel,
		RiskFactors:     a.RiskFactors,
		LLMVerdict:      a.LLM,
		AnalyzedAt:      a.AnalyzedAt,
		MintAuthority:   a.Facts.MintAuthority,
		FreezeAuthority: a.Facts.FreezeAuthority,
		TokenAgeDays:    a.Facts.TokenAgeDays,
		CreatorAddress:  a.Facts.CreatorAddress,
	}
}

// toTransactionResponse converts a transaction to the wire shape.
func toTransactionResponse(tx domain.TokenTransaction) TransactionResponse {
	return TransactionResponse{
		Signature:   tx.Signature,
		Timestamp:   tx.Timestamp,
		Type:        tx.Type,
		Amount:      tx.Amount,
		FromAddress: tx.FromAddress,
		ToAddress:   tx.ToAddress,
		Description: tx.Description,
		Source:      tx.Source,
	}
}
