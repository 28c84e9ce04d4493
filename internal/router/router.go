// Package router implements the Router contract (spec §4.1): the single
// handle(envelope) → envelope operation every inbound request passes
// through. It owns method rewriting, parameter/response translation,
// dispatch, and error normalization, and it never lets an uncaught
// failure escape to the transport layer.
package router

import (
	"context"
	"encoding/json"

	"github.com/witnet/ethrpc-gateway/internal/backend"
	"github.com/witnet/ethrpc-gateway/internal/envelope"
	"github.com/witnet/ethrpc-gateway/internal/gwerrors"
	"github.com/witnet/ethrpc-gateway/internal/gwlog"
	"github.com/witnet/ethrpc-gateway/internal/handlers"
	"github.com/witnet/ethrpc-gateway/internal/translate"
)

// Router classifies and dispatches a single backend's requests (spec §2:
// "per-backend router"). One Router instance exists per configured
// backend; the launcher (out of scope, §1) decides which one a given
// inbound connection is bound to.
type Router struct {
	Wrapper     backend.Wrapper
	MethodAlias map[string]string // original eth_* → backend-native name; nil if no aliasing
	Handlers    handlers.Table    // keyed by rewritten method name
	Translator  translate.Translator
	Logger      *gwlog.Logger
}

// New builds a Router. alias/translator may be nil for backends with no
// method renaming or parameter/response rewriting (generic EVM, Infura,
// zkSync-era).
func New(w backend.Wrapper, alias map[string]string, table handlers.Table, tr translate.Translator, logger *gwlog.Logger) *Router {
	return &Router{Wrapper: w, MethodAlias: alias, Handlers: table, Translator: tr, Logger: logger}
}

// Handle implements §4.1's single public operation. It never panics past
// this function and never returns a nil *envelope.Response: any failure at
// any step is caught and turned into an error envelope carrying req.ID
// (invariant I1, I2).
func (r *Router) Handle(ctx context.Context, req *envelope.Request) (resp *envelope.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("panic handling request", "method", req.Method, "recovered", rec)
			resp = envelope.NewError(req.ID, gwerrors.New(gwerrors.KindGeneric, "internal error").Code(), "internal error", nil)
		}
	}()

	r.Logger.Info("request", "method", req.Method)

	result, err := r.dispatch(ctx, req)
	if err != nil {
		gerr, ok := gwerrors.As(err)
		if !ok {
			gerr = gwerrors.New(gwerrors.KindGeneric, "%v", err)
		}
		r.Logger.Warn("request failed", "method", req.Method, "error", gerr.Error())
		var data json.RawMessage
		if gerr.Data != nil {
			data = envelope.MustRaw(gerr.Data)
		}
		return envelope.NewError(req.ID, gerr.Code(), gerr.Error(), data)
	}

	r.Logger.HTTP("request succeeded", "method", req.Method)
	return envelope.NewResult(req.ID, result)
}

// dispatch runs steps 1-4 of §4.1.
func (r *Router) dispatch(ctx context.Context, req *envelope.Request) (json.RawMessage, error) {
	originalMethod := req.Method

	// Step 2: param preprocess, keyed by the original method name.
	params := req.Params
	if r.Translator != nil {
		rewritten, err := r.Translator.TranslateParams(ctx, originalMethod, params)
		if err != nil {
			return nil, err
		}
		params = rewritten
	}
	r.Logger.Verbose("params", "method", originalMethod, "params", string(params))

	// Step 1: method rewrite. The handler table is keyed by the rewritten
	// name; translators above were keyed by the original name.
	dispatchMethod := originalMethod
	if r.MethodAlias != nil {
		if aliased, ok := r.MethodAlias[originalMethod]; ok {
			dispatchMethod = aliased
		}
	}

	// Step 3: dispatch.
	var result json.RawMessage
	var err error
	if h, ok := r.Handlers[dispatchMethod]; ok {
		result, err = h(ctx, r.Wrapper, dispatchMethod, params)
	} else {
		result, err = r.Wrapper.RawSend(ctx, dispatchMethod, params)
	}
	if err != nil {
		return nil, err
	}

	// Step 4: response postprocess, only for eth_* originals with a
	// structured object result.
	if r.Translator != nil && isEthMethod(originalMethod) && looksLikeObject(result) {
		result, err = r.Translator.TranslateResponse(ctx, originalMethod, result)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func isEthMethod(method string) bool {
	return len(method) > 4 && method[:4] == "eth_"
}

func looksLikeObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}
