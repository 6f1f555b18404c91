package noren

import (
	"context"
	"errors"
	"strconv"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/logger"
)

// PlaceOrder sends a day market order. Noren does not report the fill on
// placement, so FillPrice is left zero.
func (c *Client) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderAck, error) {
	inst := req.Instrument
	res, err := c.post(ctx, endpointOrder, map[string]string{
		"actid":    c.userID,
		"exch":     inst.Exchange,
		"tsym":     inst.Symbol,
		"qty":      strconv.Itoa(req.Qty),
		"prc":      "0",
		"prd":      c.productType,
		"trantype": string(req.Side),
		"prctyp":   c.priceType,
		"ret":      "DAY",
		"remarks":  "vwaptrader",
	})
	if err != nil {
		var se *statusError
		reason := ""
		if errors.As(err, &se) {
			reason = se.message
			err = nil
		}
		return broker.OrderAck{}, &broker.OrderRejectedError{Symbol: inst.Symbol, Side: req.Side, Qty: req.Qty, Reason: reason, Err: err}
	}
	orderID := res.Get("norenordno").String()
	if orderID == "" {
		return broker.OrderAck{}, &broker.OrderRejectedError{Symbol: inst.Symbol, Side: req.Side, Qty: req.Qty, Reason: "no order number returned"}
	}
	logger.Infof("Noren: order placed %s %s qty=%d id=%s", req.Side, inst.Symbol, req.Qty, orderID)
	return broker.OrderAck{OrderID: orderID}, nil
}
