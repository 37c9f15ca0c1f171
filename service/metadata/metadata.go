package metadata

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/persist"
	"github.com/omniwallet/nft-engine/service/rpc/ipfs"
	"github.com/omniwallet/nft-engine/util"
)

const maxMetadataBytes = 1 << 20 // refuse to buffer metadata documents larger than 1MiB

// Metadata is the normalized shape every token URI resolves to. Name and
// Description are always present; Image and Attributes may be empty and are
// defaulted by the caller before an item is built.
type Metadata struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Image       string              `json:"image,omitempty"`
	Attributes  []persist.Attribute `json:"attributes,omitempty"`
}

// Resolver turns raw token URIs into normalized metadata
type Resolver struct {
	httpClient *http.Client
}

// NewResolver returns a resolver that uses the given client for gateway and
// web fetches
func NewResolver(httpClient *http.Client) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Resolver{httpClient: httpClient}
}

// Resolve normalizes whatever the URI points at into a Metadata. It never
// fails: each URI family is tried in a fixed order and any error falls through
// to the next, ending at a bare {Name: fallbackName} document.
func (r *Resolver) Resolve(ctx context.Context, uri persist.TokenURI, fallbackName string) Metadata {
	fallback := Metadata{Name: fallbackName}

	bs, err := r.fetch(ctx, uri)
	if err != nil {
		if uri.Type() != persist.URITypeNone {
			logger.For(ctx).WithError(err).Debugf("could not resolve token uri %s", util.TruncateWithEllipsis(uri.String(), 50))
		}
		return fallback
	}

	parsed, err := parse(bs)
	if err != nil {
		logger.For(ctx).WithError(err).Debugf("could not parse metadata for %s", util.TruncateWithEllipsis(uri.String(), 50))
		return fallback
	}

	if parsed.Name == "" {
		parsed.Name = fallbackName
	}
	return parsed
}

func (r *Resolver) fetch(ctx context.Context, uri persist.TokenURI) ([]byte, error) {
	asString := uri.String()

	switch uri.Type() {
	case persist.URITypeBase64JSON:
		b64data := asString[strings.IndexByte(asString, ',')+1:]
		return util.Base64Decode(b64data, base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding)
	case persist.URITypeIPFS:
		body, err := ipfs.GetResponse(ctx, r.httpClient, ipfs.PathFrom(asString))
		if err != nil {
			return nil, err
		}
		defer body.Close()
		return readAllMax(body)
	case persist.URITypeHTTP:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, asString, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, util.ErrHTTP{Status: resp.StatusCode, URL: asString}
		}
		return readAllMax(resp.Body)
	case persist.URITypeJSON:
		trimmed := strings.TrimPrefix(asString, "data:application/json;utf8,")
		trimmed = strings.TrimPrefix(trimmed, "data:application/json,")
		return []byte(trimmed), nil
	default:
		return nil, fmt.Errorf("unknown token URI type: %s", uri.Type())
	}
}

// parse accepts any of the upstream metadata document shapes and maps it into
// the canonical Metadata. Field names differ across minting pipelines, so
// lookup is by candidate key rather than a fixed schema.
func parse(bs []byte) (Metadata, error) {
	// remove BOM https://en.wikipedia.org/wiki/Byte_order_mark
	bs = bytes.TrimPrefix(bs, []byte("\xef\xbb\xbf"))

	doc := map[string]interface{}{}
	if err := json.Unmarshal(bs, &doc); err != nil {
		return Metadata{}, err
	}

	m := Metadata{}
	if name, ok := doc["name"].(string); ok {
		m.Name = name
	}
	if desc, ok := doc["description"].(string); ok {
		m.Description = desc
	}
	if img, ok := util.FindFirstFieldFromMap(doc, "image", "image_url", "imageUrl").(string); ok {
		m.Image = img
	}
	if attrs, ok := doc["attributes"].([]interface{}); ok {
		m.Attributes = parseAttributes(attrs)
	}

	return m, nil
}

func parseAttributes(raw []interface{}) []persist.Attribute {
	attributes := make([]persist.Attribute, 0, len(raw))
	for _, it := range raw {
		attr, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		parsed := persist.Attribute{Value: attr["value"]}
		if traitType, ok := attr["trait_type"].(string); ok {
			parsed.TraitType = traitType
		}
		attributes = append(attributes, parsed)
	}
	return attributes
}

func readAllMax(body io.Reader) ([]byte, error) {
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, io.LimitReader(body, maxMetadataBytes)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
