// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"net/url"
	"sort"
	"strings"
)

// splitScheme strips one of the accepted schemes (case-insensitive) from dsn.
// Longer schemes must come first when one is a prefix of another.
func splitScheme(dsn string, schemes ...string) (scheme, remainder string, ok bool) {
	lower := strings.ToLower(dsn)
	for _, s := range schemes {
		prefix := s + "://"
		if strings.HasPrefix(lower, prefix) {
			return s, dsn[len(prefix):], true
		}
	}
	return "", "", false
}

// parseRemainder parses "[user[:password]@]hosts[/database][?params]".
//
// Passwords are allowed to contain unescaped '@', ':' and other reserved
// characters: the credentials end at the last '@' before the path. Escaped
// credentials (user%40corp) are unescaped.
func parseRemainder(typ DBType, scheme, remainder, original string) (*DSNInfo, error) {
	info := &DSNInfo{
		Type:     typ,
		Scheme:   scheme,
		Params:   make(map[string]string),
		Original: original,
	}

	// Query parameters can never contain the credentials separator we care about,
	// so cut them first.
	query := ""
	if q := strings.Index(remainder, "?"); q >= 0 {
		remainder, query = remainder[:q], remainder[q+1:]
	}

	authority := remainder
	path := ""
	if at := strings.LastIndex(remainder, "@"); at >= 0 {
		if slash := strings.Index(remainder[at:], "/"); slash >= 0 {
			authority, path = remainder[:at+slash], remainder[at+slash+1:]
		}
	} else if slash := strings.Index(remainder, "/"); slash >= 0 {
		authority, path = remainder[:slash], remainder[slash+1:]
	}

	hosts := authority
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		creds := authority[:at]
		hosts = authority[at+1:]
		user, pass, hasPass := strings.Cut(creds, ":")
		info.User = unescape(user)
		if hasPass {
			info.Password = unescape(pass)
		}
	}

	info.Host = hosts
	if !strings.Contains(hosts, ",") {
		if h, p, found := strings.Cut(hosts, ":"); found {
			info.Host, info.Port = h, p
		}
	}
	info.Database = strings.TrimSpace(unescape(path))

	if query != "" {
		for _, param := range strings.Split(query, "&") {
			if kv := strings.SplitN(param, "=", 2); len(kv) == 2 && kv[0] != "" {
				info.Params[unescape(kv[0])] = unescape(kv[1])
			}
		}
	}
	return info, nil
}

// writeCredentials writes "user[:password]@" with both parts escaped.
func writeCredentials(b *strings.Builder, info *DSNInfo) {
	if info.User == "" {
		return
	}
	b.WriteString(escape(info.User))
	if info.Password != "" {
		b.WriteString(":")
		b.WriteString(escape(info.Password))
	}
	b.WriteString("@")
}

// writeParams writes "?k=v&..." with keys sorted so normalization is stable.
func writeParams(b *strings.Builder, params map[string]string) {
	if len(params) == 0 {
		return
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("?")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString(escape(k))
		b.WriteString("=")
		b.WriteString(escape(params[k]))
	}
}

// escape percent-encodes s so it survives both url.Parse and unescape.
// QueryEscape turns spaces into '+', which PathUnescape would keep literally.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func unescape(s string) string {
	if v, err := url.PathUnescape(s); err == nil {
		return v
	}
	return s
}
