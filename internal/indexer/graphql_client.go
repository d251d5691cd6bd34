package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"github.com/sirupsen/logrus"

	"record-storefront/internal/domain"
	"record-storefront/internal/logging"
	"record-storefront/internal/observability"
)

// DefaultEndpoint is the indexer endpoint used in development.
const DefaultEndpoint = "http://localhost:3001/graphql"

const deploymentFields = `
			recordAddress
			artistName
			collectionName
			symbol
			factoryAddress
			transactionHash
			blockNumber
			transactionIndex`

var (
	deploymentsQuery = `query Deployments($first: Int) {
	allRecordDeployeds(orderBy: [BLOCK_NUMBER_DESC, TRANSACTION_INDEX_DESC], first: $first) {
		nodes {` + deploymentFields + `
		}
	}
}`

	recordByAddressQuery = `query RecordByAddress($address: String!) {
	allRecordDeployeds(condition: {recordAddress: $address}, first: 1) {
		nodes {` + deploymentFields + `
		}
	}
}`
)

// GraphQLClient implements Indexer over the indexer's GraphQL API.
type GraphQLClient struct {
	client *graphql.Client
	log    *logrus.Entry
}

var _ Indexer = (*GraphQLClient)(nil)

// Option configures GraphQLClient.
type Option func(*options)

type options struct {
	httpClient *http.Client
	log        *logrus.Entry
}

// WithHTTPClient sets the HTTP client used for queries.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger; query traces are logged at trace level.
func WithLogger(log *logrus.Entry) Option {
	return func(o *options) {
		o.log = log
	}
}

// NewGraphQLClient creates a client for endpoint. An empty endpoint uses DefaultEndpoint.
func NewGraphQLClient(endpoint string, opts ...Option) *GraphQLClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	o := options{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	client := graphql.NewClient(endpoint, graphql.WithHTTPClient(o.httpClient))
	client.Log = func(s string) { o.log.Trace(s) }

	return &GraphQLClient{client: client, log: o.log}
}

// RecordByAddress returns the deployment of the record at address.
func (c *GraphQLClient) RecordByAddress(ctx context.Context, address string) (*domain.DeployedRecord, error) {
	req := graphql.NewRequest(recordByAddressQuery)
	req.Var("address", strings.ToLower(address))

	records, err := c.run(ctx, "record_by_address", req)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	return &records[0], nil
}

// AllDeployments returns every deployment.
func (c *GraphQLClient) AllDeployments(ctx context.Context) ([]domain.DeployedRecord, error) {
	req := graphql.NewRequest(deploymentsQuery)
	req.Var("first", nil)
	return c.run(ctx, "all_deployments", req)
}

// FirstPage returns the newest limit deployments.
func (c *GraphQLClient) FirstPage(ctx context.Context, limit int) ([]domain.DeployedRecord, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	req := graphql.NewRequest(deploymentsQuery)
	req.Var("first", limit)
	return c.run(ctx, "first_page", req)
}

func (c *GraphQLClient) run(ctx context.Context, name string, req *graphql.Request) ([]domain.DeployedRecord, error) {
	start := time.Now()

	var resp deploymentsResponse
	err := c.client.Run(ctx, req, &resp)
	observability.RecordIndexerQuery(name, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("indexer %s: %w", name, err)
	}

	records := make([]domain.DeployedRecord, 0, len(resp.AllRecordDeployeds.Nodes))
	for _, n := range resp.AllRecordDeployeds.Nodes {
		records = append(records, n.toDomain())
	}
	c.log.WithFields(logrus.Fields{"query": name, "count": len(records)}).Debug("indexer query")
	return records, nil
}

type deploymentsResponse struct {
	AllRecordDeployeds struct {
		Nodes []deploymentNode `json:"nodes"`
	} `json:"allRecordDeployeds"`
}

type deploymentNode struct {
	RecordAddress    string   `json:"recordAddress"`
	ArtistName       string   `json:"artistName"`
	CollectionName   string   `json:"collectionName"`
	Symbol           string   `json:"symbol"`
	FactoryAddress   string   `json:"factoryAddress"`
	TransactionHash  string   `json:"transactionHash"`
	BlockNumber      flexUint `json:"blockNumber"`
	TransactionIndex flexUint `json:"transactionIndex"`
}

func (n deploymentNode) toDomain() domain.DeployedRecord {
	return domain.DeployedRecord{
		RecordAddress:    n.RecordAddress,
		ArtistName:       n.ArtistName,
		CollectionName:   n.CollectionName,
		Symbol:           n.Symbol,
		FactoryAddress:   n.FactoryAddress,
		TransactionHash:  n.TransactionHash,
		BlockNumber:      uint64(n.BlockNumber),
		TransactionIndex: uint64(n.TransactionIndex),
	}
}

// flexUint accepts a JSON number or a decimal string; the indexer serialises
// BigInt columns as strings.
type flexUint uint64

func (f *flexUint) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		s = string(b)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", b, err)
	}
	*f = flexUint(v)
	return nil
}
