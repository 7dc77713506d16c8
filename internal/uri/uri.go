package uri

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

const (
	SchemeIPFS  = "ipfs://"
	SchemeData  = "data:"
	SchemeHTTP  = "http://"
	SchemeHTTPS = "https://"
)

// Config holds configuration for the URI resolver
type Config struct {
	// IPFSGateways are gateway base URLs ending in /ipfs, tried in order
	IPFSGateways []string
}

// DefaultIPFSGateways returns the gateway list used when none is configured: the
// Pinata dedicated gateway first, then public gateways
func DefaultIPFSGateways(pinataGateway string) []string {
	if pinataGateway == "" {
		pinataGateway = domain.DEFAULT_PINATA_GATEWAY
	}
	return []string{
		fmt.Sprintf("https://%s/ipfs", strings.TrimSuffix(pinataGateway, "/")),
		"https://cloudflare-ipfs.com/ipfs",
		domain.DEFAULT_IPFS_GATEWAY + "/ipfs",
	}
}

// Resolver maps a token URI to the HTTP URLs it can be fetched from
//
//go:generate mockgen -source=uri.go -destination=../mocks/uri_resolver.go -package=mocks -mock_names=Resolver=MockURIResolver
type Resolver interface {
	// URLs returns the candidate URLs of uri in the order they should be tried.
	// ipfs:// URIs expand to one URL per gateway; http(s) URLs are returned as is.
	URLs(uri string) ([]string, error)
}

type resolver struct {
	config *Config
}

// NewResolver creates a URI resolver
func NewResolver(config *Config) Resolver {
	return &resolver{config: config}
}

func (r *resolver) URLs(uri string) ([]string, error) {
	uri = strings.TrimSpace(uri)

	if path, ok := strings.CutPrefix(uri, SchemeIPFS); ok {
		if len(r.config.IPFSGateways) == 0 {
			return nil, fmt.Errorf("no IPFS gateways configured")
		}
		path = strings.TrimPrefix(path, "ipfs/")
		urls := make([]string, 0, len(r.config.IPFSGateways))
		for _, gw := range r.config.IPFSGateways {
			urls = append(urls, fmt.Sprintf("%s/%s", strings.TrimSuffix(gw, "/"), path))
		}
		return urls, nil
	}

	if strings.HasPrefix(uri, SchemeHTTP) || strings.HasPrefix(uri, SchemeHTTPS) {
		return []string{uri}, nil
	}

	return nil, fmt.Errorf("unsupported URI scheme: %s", uri)
}

// IsIPFS reports whether uri uses the ipfs:// scheme
func IsIPFS(uri string) bool {
	return strings.HasPrefix(uri, SchemeIPFS)
}

// IsDataURI reports whether uri is an RFC 2397 data URI
func IsDataURI(uri string) bool {
	return strings.HasPrefix(uri, SchemeData)
}

var gatewayCIDPattern = regexp.MustCompile(`/ipfs/([a-zA-Z0-9]+)`)

// ExtractCID returns the root CID of an ipfs:// URI or of a gateway URL containing /ipfs/<cid>
func ExtractCID(uri string) (string, bool) {
	if path, ok := strings.CutPrefix(uri, SchemeIPFS); ok {
		cid := strings.SplitN(path, "/", 2)[0]
		return cid, cid != ""
	}
	if m := gatewayCIDPattern.FindStringSubmatch(uri); m != nil {
		return m[1], true
	}
	return "", false
}

// GatewayURL converts an ipfs:// URI to a URL on the first gateway, leaving other URIs untouched
func GatewayURL(uri string, gateways []string) string {
	path, ok := strings.CutPrefix(uri, SchemeIPFS)
	if !ok || len(gateways) == 0 {
		return uri
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(gateways[0], "/"), path)
}
