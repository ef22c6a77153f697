// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jeranaias/kefu-tui/internal/api"
)

// DefaultOrderCacheTTL bounds how stale a cached order may be.
const DefaultOrderCacheTTL = 30 * time.Second

var (
	// ErrEmptyOrderID rejects a blank order number before any call.
	ErrEmptyOrderID = errors.New("order id is empty")

	// ErrOrderFailed is the Kind of order lookup and e-mail failures.
	ErrOrderFailed = errors.New("order request failed")

	// ErrNoCustomerEmail rejects dispatch for an order the backend marks as
	// not mailable or that has no address.
	ErrNoCustomerEmail = errors.New("order has no customer e-mail")
)

// OrderAPI is the order backend. *api.Client implements it.
type OrderAPI interface {
	Order(ctx context.Context, orderID string) (*api.Envelope[api.Order], error)
	SendOrderEmail(ctx context.Context, orderID string) (*api.Envelope[api.SendEmailResult], error)
}

// Orders runs order lookups and e-mail dispatch.
type Orders struct {
	api   OrderAPI
	opts  options
	log   *zap.Logger
	cache *cache.Cache
	group singleflight.Group
}

// NewOrders creates the order flow.
func NewOrders(o OrderAPI, opts ...Option) *Orders {
	op := buildOptions(opts)
	orders := &Orders{api: o, opts: op, log: op.logger.Named("orders")}
	if op.cacheTTL > 0 {
		orders.cache = cache.New(op.cacheTTL, 2*op.cacheTTL)
	}
	return orders
}

// Lookup fetches an order. Successful results are cached briefly and
// concurrent lookups of the same id share one request.
func (o *Orders) Lookup(ctx context.Context, orderID string) (api.Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		o.opts.notifier.Notify(errorNotice(TitleOrderIDMissing, MsgOrderIDMissing))
		return api.Order{}, ErrEmptyOrderID
	}

	if o.cache != nil {
		if v, ok := o.cache.Get(id); ok {
			o.log.Debug("order cache hit", zap.String("order_id", id))
			return v.(api.Order), nil
		}
	}

	v, err, shared := o.group.Do(id, func() (any, error) {
		env, err := o.api.Order(ctx, id)
		if err != nil || !env.OK() {
			fallback := MsgOrderNotFound
			if err != nil {
				fallback = MsgNetworkError
			}
			return nil, fail(ErrOrderFailed, api.ErrorText(env, err, fallback), err)
		}
		if o.cache != nil {
			o.cache.SetDefault(id, *env.Data)
		}
		return *env.Data, nil
	})
	if err != nil {
		o.log.Info("order lookup failed", zap.String("order_id", id), zap.Error(err))
		o.opts.notifier.Notify(errorNotice(TitleQueryFailed, err.Error()))
		return api.Order{}, err
	}
	if shared {
		o.log.Debug("order lookup shared", zap.String("order_id", id))
	}
	o.opts.notifier.Notify(successNotice(TitleOrderOK, MsgOrderLoaded))
	return v.(api.Order), nil
}

// SendEmail asks the backend to mail the order to its customer. Callers
// confirm with the user first. Orders without CanSendEmail or an address
// are refused before any call.
func (o *Orders) SendEmail(ctx context.Context, order api.Order) error {
	id := strings.TrimSpace(order.OrderID)
	if id == "" {
		o.opts.notifier.Notify(errorNotice(TitleOrderIDMissing, MsgOrderIDMissing))
		return ErrEmptyOrderID
	}
	if !order.CanSendEmail || strings.TrimSpace(order.CustomerEmail) == "" {
		o.opts.notifier.Notify(errorNotice(TitleEmailFailed, MsgNoCustomerEmail))
		return fmt.Errorf("order %s: %w", id, ErrNoCustomerEmail)
	}

	env, err := o.api.SendOrderEmail(ctx, id)
	if err != nil || env == nil || !env.Success {
		fallback := "发送失败"
		if err != nil {
			fallback = MsgEmailFailed
		}
		msg := api.ErrorText(env, err, fallback)
		o.log.Info("order email failed", zap.String("order_id", id), zap.String("reason", msg))
		o.opts.notifier.Notify(errorNotice(TitleEmailFailed, msg))
		return fail(ErrOrderFailed, msg, err)
	}

	o.log.Info("order email sent", zap.String("order_id", id))
	o.opts.notifier.Notify(successNotice(TitleEmailSent, EmailSentMessage(order.CustomerEmail)))
	return nil
}

// Forget drops a cached order, e.g. after its status may have changed.
func (o *Orders) Forget(orderID string) {
	if o.cache != nil {
		o.cache.Delete(strings.TrimSpace(orderID))
	}
}

// EmailConfirmPrompt is the question asked before SendEmail.
func EmailConfirmPrompt(order api.Order) string {
	return fmt.Sprintf("是否将订单 %s 的信息发送到邮箱 %s?", order.OrderID, order.CustomerEmail)
}

// EmailSentMessage describes a dispatched e-mail.
func EmailSentMessage(to string) string {
	if to == "" {
		return "邮件已发送"
	}
	return "已发送至 " + to
}
