package metadata_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/metadata"
	"github.com/feral-file/ff-marketplace-mirror/internal/mocks"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
	"github.com/feral-file/ff-marketplace-mirror/internal/uri"
)

const (
	fetchCollection = "0x05dbdedc203e92749e2e746e2d40a768d966bd243df04a6b712e222bc040a9af"
	fetchOwner      = "0x00000000000000000000000000000000000000000000000000000000000a11ce"
	fetchTokenID    = "42"
)

type testFetcher struct {
	ctrl     *gomock.Controller
	store    store.Store
	client   *mocks.MockStarknetClient
	resolver *mocks.MockMetadataResolver
	queue    *mocks.MockQueue
	fetcher  metadata.Fetcher
	payload  queue.MetadataFetchPayload
}

func setupTestFetcher(t *testing.T) *testFetcher {
	ctrl := gomock.NewController(t)
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.EnsureCollection(ctx, domain.ChainStarknetMainnet, fetchCollection, 900))
	require.NoError(t, st.EnsureToken(ctx, store.EnsureTokenInput{
		Chain:           domain.ChainStarknetMainnet,
		ContractAddress: fetchCollection,
		TokenID:         fetchTokenID,
		Owner:           fetchOwner,
	}))

	client := mocks.NewMockStarknetClient(ctrl)
	resolver := mocks.NewMockMetadataResolver(ctrl)
	q := mocks.NewMockQueue(ctrl)
	return &testFetcher{
		ctrl:     ctrl,
		store:    st,
		client:   client,
		resolver: resolver,
		queue:    q,
		fetcher: metadata.NewFetcher(st, client, resolver, uri.NewDataURIChecker(), q,
			metadata.FetcherConfig{Timeout: 3 * time.Second}),
		payload: queue.MetadataFetchPayload{
			Chain:           domain.ChainStarknetMainnet,
			ContractAddress: fetchCollection,
			TokenID:         fetchTokenID,
		},
	}
}

func (tf *testFetcher) token(t *testing.T) *schema.Token {
	token, err := tf.store.GetToken(context.Background(), domain.ChainStarknetMainnet, fetchCollection, fetchTokenID)
	require.NoError(t, err)
	require.NotNil(t, token)
	return token
}

func TestFetch_Resolved(t *testing.T) {
	tf := setupTestFetcher(t)
	defer tf.ctrl.Finish()

	doc := map[string]interface{}{
		"name":        "Sunrise",
		"description": "A photograph",
		"image":       "ipfs://bafyimage",
		"attributes":  []interface{}{map[string]interface{}{"trait_type": "Medium", "value": "Film"}},
		"properties": map[string]interface{}{
			"ip_type":        "Photography",
			"license_type":   "CC BY",
			"commercial_use": true,
		},
		"author": "Ana",
	}

	tf.client.EXPECT().TokenURI(gomock.Any(), fetchCollection, fetchTokenID).Return(ipfsURI, nil)
	tf.resolver.EXPECT().Resolve(gomock.Any(), ipfsURI, 3*time.Second).Return(metadata.Result{
		Status:      metadata.StatusResolved,
		Document:    doc,
		ResolvedURL: pinataURL,
	})
	tf.queue.EXPECT().Enqueue(gomock.Any(), schema.JobTypeMetadataPin,
		queue.MetadataPinPayload{CID: "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"}, gomock.Any()).
		Return("01PIN", nil)

	require.NoError(t, tf.fetcher.Fetch(context.Background(), tf.payload, false))

	token := tf.token(t)
	assert.Equal(t, schema.MetadataStatusFetched, token.MetadataStatus)
	require.NotNil(t, token.TokenURI)
	assert.Equal(t, ipfsURI, *token.TokenURI)
	require.NotNil(t, token.Name)
	assert.Equal(t, "Sunrise", *token.Name)
	require.NotNil(t, token.Image)
	assert.Equal(t, "ipfs://bafyimage", *token.Image)
	assert.Nil(t, token.MimeType)
	assert.JSONEq(t, `[{"trait_type":"Medium","value":"Film"}]`, string(token.Attributes))
	require.NotNil(t, token.IPType)
	assert.Equal(t, "Photography", *token.IPType)
	require.NotNil(t, token.CommercialUse)
	assert.Equal(t, "true", *token.CommercialUse)
	require.NotNil(t, token.Author)
	assert.Equal(t, "Ana", *token.Author)
}

func TestFetch_HTTPURIIsNotPinned(t *testing.T) {
	tf := setupTestFetcher(t)
	defer tf.ctrl.Finish()

	tf.client.EXPECT().TokenURI(gomock.Any(), fetchCollection, fetchTokenID).Return(httpURI, nil)
	tf.resolver.EXPECT().Resolve(gomock.Any(), httpURI, gomock.Any()).Return(metadata.Result{
		Status:   metadata.StatusResolved,
		Document: map[string]interface{}{"name": "Web token", "image": "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="},
	})

	require.NoError(t, tf.fetcher.Fetch(context.Background(), tf.payload, false))

	token := tf.token(t)
	assert.Equal(t, schema.MetadataStatusFetched, token.MetadataStatus)
	require.NotNil(t, token.MimeType)
	assert.Equal(t, "image/png", *token.MimeType)
}

func TestFetch_NoTokenURI(t *testing.T) {
	tf := setupTestFetcher(t)
	defer tf.ctrl.Finish()

	tf.client.EXPECT().TokenURI(gomock.Any(), fetchCollection, fetchTokenID).Return("", domain.ErrNoTokenURI)

	require.NoError(t, tf.fetcher.Fetch(context.Background(), tf.payload, false))

	token := tf.token(t)
	assert.Equal(t, schema.MetadataStatusFailed, token.MetadataStatus)
	assert.Nil(t, token.TokenURI)
}

func TestFetch_RPCErrorIsRetried(t *testing.T) {
	tf := setupTestFetcher(t)
	defer tf.ctrl.Finish()

	tf.client.EXPECT().TokenURI(gomock.Any(), fetchCollection, fetchTokenID).Return("", errors.New("rpc unavailable"))

	err := tf.fetcher.Fetch(context.Background(), tf.payload, false)
	assert.Error(t, err)
	assert.Equal(t, schema.MetadataStatusFailed, tf.token(t).MetadataStatus)
}

func TestFetch_TimedOutGoesBackToPending(t *testing.T) {
	tf := setupTestFetcher(t)
	defer tf.ctrl.Finish()
	ctx := context.Background()

	tf.client.EXPECT().TokenURI(gomock.Any(), fetchCollection, fetchTokenID).Return(ipfsURI, nil)
	tf.resolver.EXPECT().Resolve(gomock.Any(), ipfsURI, gomock.Any()).Return(metadata.Result{
		Status: metadata.StatusTimedOut,
		Err:    context.DeadlineExceeded,
	})

	err := tf.fetcher.Fetch(ctx, tf.payload, false)
	assert.ErrorIs(t, err, metadata.ErrResolutionTimedOut)

	token := tf.token(t)
	assert.Equal(t, schema.MetadataStatusPending, token.MetadataStatus)
	assert.Nil(t, token.TokenURI)

	// still eligible for the mirror to enqueue again
	pending, err := tf.store.GetPendingMetadataTokens(ctx, domain.ChainStarknetMainnet, []string{fetchCollection}, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fetchTokenID, pending[0].TokenID)
}

func TestFetch_TimedOutOnLastAttemptFails(t *testing.T) {
	tf := setupTestFetcher(t)
	defer tf.ctrl.Finish()

	tf.client.EXPECT().TokenURI(gomock.Any(), fetchCollection, fetchTokenID).Return(ipfsURI, nil)
	tf.resolver.EXPECT().Resolve(gomock.Any(), ipfsURI, gomock.Any()).Return(metadata.Result{
		Status: metadata.StatusTimedOut,
		Err:    context.DeadlineExceeded,
	})

	err := tf.fetcher.Fetch(context.Background(), tf.payload, true)
	assert.ErrorIs(t, err, metadata.ErrResolutionTimedOut)

	token := tf.token(t)
	assert.Equal(t, schema.MetadataStatusFailed, token.MetadataStatus)
	require.NotNil(t, token.TokenURI)
	assert.Equal(t, ipfsURI, *token.TokenURI)
}

func TestFetch_FailedStillPins(t *testing.T) {
	tf := setupTestFetcher(t)
	defer tf.ctrl.Finish()

	tf.client.EXPECT().TokenURI(gomock.Any(), fetchCollection, fetchTokenID).Return(ipfsURI, nil)
	tf.resolver.EXPECT().Resolve(gomock.Any(), ipfsURI, gomock.Any()).Return(metadata.Result{
		Status: metadata.StatusFailed,
		Cached: true,
		Err:    errors.New("cached resolution failure"),
	})
	// a failed pin enqueue does not fail the fetch
	tf.queue.EXPECT().Enqueue(gomock.Any(), schema.JobTypeMetadataPin, gomock.Any(), gomock.Any()).
		Return("", errors.New("connection reset"))

	require.NoError(t, tf.fetcher.Fetch(context.Background(), tf.payload, false))

	token := tf.token(t)
	assert.Equal(t, schema.MetadataStatusFailed, token.MetadataStatus)
	require.NotNil(t, token.TokenURI)
	assert.Equal(t, ipfsURI, *token.TokenURI)
	assert.Nil(t, token.Name)
}
