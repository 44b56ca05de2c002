package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/bitfsorg/ordinals-go/bsv20"
	"github.com/bitfsorg/ordinals-go/inscription"
	"github.com/bitfsorg/ordinals-go/network"
	"github.com/bitfsorg/ordinals-go/ordinals"
	"github.com/bitfsorg/ordinals-go/tx"
)

// env is what an operation needs besides the request.
type env struct {
	opts    ordinals.Options
	paymail ordinals.PaymailResolver
	// node connects on first use.
	node func() (network.BlockchainService, error)
}

// complete looks up the script and satoshis of inputs given by outpoint
// only. No connection is made when every input is complete.
func (e *env) complete(ctx context.Context, utxos ...*tx.UTXO) error {
	if !network.NeedsLookup(utxos...) {
		return nil
	}
	node, err := e.node()
	if err != nil {
		return err
	}
	return network.CompleteUTXOs(ctx, node, utxos...)
}

func (e *env) completeTokens(ctx context.Context, tokens ...*bsv20.TokenUTXO) error {
	utxos := make([]*tx.UTXO, 0, len(tokens))
	for _, t := range tokens {
		if t != nil {
			utxos = append(utxos, &t.UTXO)
		}
	}
	return e.complete(ctx, utxos...)
}

type opFunc func(ctx context.Context, req *Request, e *env) (*ordinals.Result, error)

// operations maps `ordtx build <op>` names to builders.
var operations = map[string]opFunc{
	"inscribe":        inscribe,
	"send":            send,
	"send-utxos":      sendUtxos,
	"list":            list,
	"list-tokens":     listTokens,
	"cancel":          cancel,
	"cancel-tokens":   cancelTokens,
	"purchase":        purchase,
	"purchase-tokens": purchaseTokens,
	"transfer":        transfer,
	"deploy":          deploy,
	"burn":            burn,
}

func operationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func inscribe(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	meta, err := req.metadata()
	if err != nil {
		return nil, err
	}
	return ordinals.CreateOrdinals(ctx, &ordinals.CreateOrdinalsConfig{
		Options:      e.opts,
		Destinations: destinations(req.Destinations),
		Metadata:     meta,
	})
}

func send(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	meta, err := req.metadata()
	if err != nil {
		return nil, err
	}
	ords, err := toUTXOs("ordinals", req.Ordinals)
	if err != nil {
		return nil, err
	}
	if err := e.complete(ctx, ords...); err != nil {
		return nil, err
	}
	ordKey, err := parseKey("ordPk", req.OrdPK)
	if err != nil {
		return nil, err
	}
	uniform := true
	if req.EnforceUniformSend != nil {
		uniform = *req.EnforceUniformSend
	}
	return ordinals.SendOrdinals(ctx, &ordinals.SendOrdinalsConfig{
		Options:            e.opts,
		Ordinals:           ords,
		OrdKey:             ordKey,
		Destinations:       destinations(req.Destinations),
		Metadata:           meta,
		EnforceUniformSend: uniform,
	})
}

func sendUtxos(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	return ordinals.SendUtxos(ctx, &ordinals.SendUtxosConfig{
		Options:  e.opts,
		Payments: req.Payments,
	})
}

func list(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	var raw []ordListingJSON
	if err := decodeRaw("listings", req.Listings, &raw); err != nil {
		return nil, err
	}
	ordKey, err := parseKey("ordPk", req.OrdPK)
	if err != nil {
		return nil, err
	}
	listings := make([]*ordinals.NewOrdListing, len(raw))
	for i := range raw {
		u, err := raw[i].ListingUTXO.toUTXO(fmt.Sprintf("listings[%d].listingUtxo", i))
		if err != nil {
			return nil, err
		}
		listings[i] = &ordinals.NewOrdListing{
			ListingUTXO: u,
			PayAddress:  raw[i].PayAddress,
			Price:       raw[i].Price,
			OrdAddress:  raw[i].OrdAddress,
		}
		if err := e.complete(ctx, u); err != nil {
			return nil, err
		}
	}
	return ordinals.CreateOrdListings(ctx, &ordinals.CreateOrdListingsConfig{
		Options:  e.opts,
		Listings: listings,
		OrdKey:   ordKey,
	})
}

func listTokens(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	var raw []tokenListingJSON
	if err := decodeRaw("listings", req.Listings, &raw); err != nil {
		return nil, err
	}
	proto, err := req.protocol()
	if err != nil {
		return nil, err
	}
	mode, err := req.inputMode()
	if err != nil {
		return nil, err
	}
	split, err := req.splitConfig()
	if err != nil {
		return nil, err
	}
	inputs, err := toTokenUTXOs("inputTokens", req.InputTokens)
	if err != nil {
		return nil, err
	}
	if err := e.completeTokens(ctx, inputs...); err != nil {
		return nil, err
	}
	ordKey, err := parseKey("ordPk", req.OrdPK)
	if err != nil {
		return nil, err
	}
	listings := make([]*ordinals.NewTokenListing, len(raw))
	for i, l := range raw {
		listings[i] = &ordinals.NewTokenListing{
			PayAddress: l.PayAddress,
			Price:      l.Price,
			Tokens:     string(l.Tokens),
			OrdAddress: l.OrdAddress,
		}
	}
	return ordinals.CreateTokenListings(ctx, &ordinals.CreateTokenListingsConfig{
		Options:            e.opts,
		Protocol:           proto,
		TokenID:            req.TokenID,
		Decimals:           req.Decimals,
		InputTokens:        inputs,
		Listings:           listings,
		InputMode:          mode,
		OrdKey:             ordKey,
		TokenChangeAddress: req.TokenChangeAddress,
		SplitConfig:        split,
	})
}

func cancel(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	var raw []utxoJSON
	if err := decodeRaw("listingUtxos", req.ListingUtxos, &raw); err != nil {
		return nil, err
	}
	listings, err := toUTXOs("listingUtxos", raw)
	if err != nil {
		return nil, err
	}
	if err := e.complete(ctx, listings...); err != nil {
		return nil, err
	}
	ordKey, err := parseKey("ordPk", req.OrdPK)
	if err != nil {
		return nil, err
	}
	return ordinals.CancelOrdListings(ctx, &ordinals.CancelOrdListingsConfig{
		Options:    e.opts,
		Listings:   listings,
		OrdKey:     ordKey,
		OrdAddress: req.OrdAddress,
	})
}

func cancelTokens(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	var raw []tokenUTXOJSON
	if err := decodeRaw("listingUtxos", req.ListingUtxos, &raw); err != nil {
		return nil, err
	}
	listings, err := toTokenUTXOs("listingUtxos", raw)
	if err != nil {
		return nil, err
	}
	if err := e.completeTokens(ctx, listings...); err != nil {
		return nil, err
	}
	proto, err := req.protocol()
	if err != nil {
		return nil, err
	}
	meta, err := req.metadata()
	if err != nil {
		return nil, err
	}
	ordKey, err := parseKey("ordPk", req.OrdPK)
	if err != nil {
		return nil, err
	}
	return ordinals.CancelTokenListings(ctx, &ordinals.CancelTokenListingsConfig{
		Options:    e.opts,
		Protocol:   proto,
		TokenID:    req.TokenID,
		Listings:   listings,
		OrdKey:     ordKey,
		OrdAddress: req.OrdAddress,
		Metadata:   meta,
	})
}

func purchase(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	var raw utxoJSON
	if err := decodeRaw("listingUtxo", req.ListingUtxo, &raw); err != nil {
		return nil, err
	}
	listing, err := raw.toUTXO("listingUtxo")
	if err != nil {
		return nil, err
	}
	if err := e.complete(ctx, listing); err != nil {
		return nil, err
	}
	meta, err := req.metadata()
	if err != nil {
		return nil, err
	}
	return ordinals.PurchaseOrdListing(ctx, &ordinals.PurchaseOrdListingConfig{
		Options:    e.opts,
		Listing:    listing,
		Payout:     req.Payout,
		OrdAddress: req.OrdAddress,
		Royalties:  req.Royalties,
		Paymail:    e.paymail,
		Metadata:   meta,
	})
}

func purchaseTokens(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	var raw tokenUTXOJSON
	if err := decodeRaw("listingUtxo", req.ListingUtxo, &raw); err != nil {
		return nil, err
	}
	listing, err := raw.toTokenUTXO("listingUtxo")
	if err != nil {
		return nil, err
	}
	if err := e.completeTokens(ctx, listing); err != nil {
		return nil, err
	}
	proto, err := req.protocol()
	if err != nil {
		return nil, err
	}
	meta, err := req.metadata()
	if err != nil {
		return nil, err
	}
	return ordinals.PurchaseTokenListing(ctx, &ordinals.PurchaseTokenListingConfig{
		Options:    e.opts,
		Protocol:   proto,
		TokenID:    req.TokenID,
		Listing:    listing,
		OrdAddress: req.OrdAddress,
		Royalties:  req.Royalties,
		Paymail:    e.paymail,
		Metadata:   meta,
	})
}

// tokenSpend collects the fields shared by transfer and burn.
type tokenSpend struct {
	proto  bsv20.Protocol
	mode   ordinals.TokenInputMode
	split  *bsv20.SplitConfig
	inputs []*bsv20.TokenUTXO
	meta   inscription.Metadata
}

func (r *Request) tokenSpend() (*tokenSpend, error) {
	proto, err := r.protocol()
	if err != nil {
		return nil, err
	}
	mode, err := r.inputMode()
	if err != nil {
		return nil, err
	}
	split, err := r.splitConfig()
	if err != nil {
		return nil, err
	}
	inputs, err := toTokenUTXOs("inputTokens", r.InputTokens)
	if err != nil {
		return nil, err
	}
	meta, err := r.metadata()
	if err != nil {
		return nil, err
	}
	return &tokenSpend{proto: proto, mode: mode, split: split, inputs: inputs, meta: meta}, nil
}

func transfer(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	ts, err := req.tokenSpend()
	if err != nil {
		return nil, err
	}
	if err := e.completeTokens(ctx, ts.inputs...); err != nil {
		return nil, err
	}
	ordKey, err := parseKey("ordPk", req.OrdPK)
	if err != nil {
		return nil, err
	}
	return ordinals.TransferTokens(ctx, &ordinals.TransferTokensConfig{
		Options:            e.opts,
		Protocol:           ts.proto,
		TokenID:            req.TokenID,
		Decimals:           req.Decimals,
		InputTokens:        ts.inputs,
		Distributions:      distributions(req.Distributions),
		InputMode:          ts.mode,
		OrdKey:             ordKey,
		TokenChangeAddress: req.TokenChangeAddress,
		SplitConfig:        ts.split,
		Metadata:           ts.meta,
	})
}

func burn(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	ts, err := req.tokenSpend()
	if err != nil {
		return nil, err
	}
	if err := e.completeTokens(ctx, ts.inputs...); err != nil {
		return nil, err
	}
	ordKey, err := parseKey("ordPk", req.OrdPK)
	if err != nil {
		return nil, err
	}
	return ordinals.BurnTokens(ctx, &ordinals.BurnTokensConfig{
		Options:            e.opts,
		Protocol:           ts.proto,
		TokenID:            req.TokenID,
		Decimals:           req.Decimals,
		InputTokens:        ts.inputs,
		Amount:             string(req.Amount),
		InputMode:          ts.mode,
		OrdKey:             ordKey,
		OrdAddress:         req.OrdAddress,
		TokenChangeAddress: req.TokenChangeAddress,
		SplitConfig:        ts.split,
		Metadata:           ts.meta,
	})
}

func deploy(ctx context.Context, req *Request, e *env) (*ordinals.Result, error) {
	return ordinals.DeployBsv21Token(ctx, &ordinals.DeployBsv21TokenConfig{
		Options:         e.opts,
		Symbol:          req.Symbol,
		Decimals:        req.Decimals,
		Amount:          string(req.Amount),
		Icon:            req.Icon,
		IconInscription: req.IconInscription,
		Destination:     req.DestinationAddress,
	})
}
