package statistics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSubscriberStatistic_NoDataItems(t *testing.T) {
	svc := New(nil)

	res, err := svc.GetSubscriberStatistic(context.Background(), &SubscriberStatisticRequest{})
	require.NoError(t, err)
	require.Empty(t, res.DataItems)
}

func TestGetSubscriberStatistic_InvalidDataItemID(t *testing.T) {
	svc := New(nil)

	_, err := svc.GetSubscriberStatistic(context.Background(), &SubscriberStatisticRequest{
		DataItems: []*SubscriberStatisticDataItem{{ID: "not_a_statistic"}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid data item id")
}

func TestGetSubscriberStatistic_ErrorDoesNotHideOtherFailures(t *testing.T) {
	svc := New(nil)

	// every item fails; the call must surface an error rather than return a
	// partial response
	_, err := svc.GetSubscriberStatistic(context.Background(), &SubscriberStatisticRequest{
		DataItems: []*SubscriberStatisticDataItem{
			{ID: "bogus_one"},
			{ID: "bogus_two"},
		},
	})
	require.Error(t, err)
}
