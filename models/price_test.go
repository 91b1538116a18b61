package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPricesResponse(t *testing.T) {
	resp := NewPricesResponse(nil)
	assert.Zero(t, resp.TotalRecords)
	require.NotNil(t, resp.Data)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_records":0,"data":[]}`, string(body))

	records := []PriceRecord{{State: "Kerala"}, {State: "Odisha"}}
	resp = NewPricesResponse(records)
	assert.Equal(t, 2, resp.TotalRecords)
	assert.Equal(t, records, resp.Data)
}

func TestPriceRecordFieldOrder(t *testing.T) {
	body, err := json.Marshal(PriceRecord{
		State: "Maharashtra", Mandi: "Lasalgaon", Commodity: "Onion",
		MinPrice: "900", ModalPrice: "1400", MaxPrice: "1611",
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"state":"Maharashtra","mandi":"Lasalgaon","commodity":"Onion","min_price":"900","modal_price":"1400","max_price":"1611"}`,
		string(body))
}
