// The MIT License (MIT)
//
// Copyright (c) 2013-2016 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package client

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	oe "github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-rtmp/kernel"
	"github.com/ossrs/go-oryx-rtmp/protocol"
	"net/url"
	"strings"
)

// The next request for adobe auth, by the description of rejected status:
//	first, reject with authmod=adobe, retry with the user.
//	then, reject with reason=needauth, retry with the challenge response.
// Return nil when no more retry, or error when auth failed.
func adobeAuth(origin, req *protocol.Request, description string) (*protocol.Request, error) {
	if !origin.HasCredentials() {
		return nil, nil
	}

	switch {
	case strings.Contains(description, "reason=nosuchuser"), strings.Contains(description, "reason=authfailed"):
		return nil, oe.Wrapf(ErrAuthFailed, "%v", description)
	case strings.Contains(description, "reason=needauth"):
		return adobeChallenge(origin, req, description, fmt.Sprintf("%08x", kernel.RandomUint32()))
	case strings.Contains(description, "authmod=adobe"):
		if origin.Password == "" {
			return nil, oe.Wrap(ErrAuthFailed, "no password")
		}
		return origin.WithQuery("authmod=adobe&user=" + url.QueryEscape(origin.User)), nil
	}
	return nil, nil
}

// The response is base64(md5(base64(md5(user+salt+password)) + opaque|challenge + cchallenge)).
func adobeChallenge(origin, req *protocol.Request, description, cchallenge string) (*protocol.Request, error) {
	pos := strings.Index(description, "?")
	if pos < 0 {
		return nil, oe.Wrapf(ErrAuthFailed, "no query in %v", description)
	}

	q, err := url.ParseQuery(description[pos+1:])
	if err != nil {
		return nil, oe.Wrapf(ErrAuthFailed, "parse %v, %v", description, err)
	}

	salt := q.Get("salt")
	if salt == "" {
		return nil, oe.Wrapf(ErrAuthFailed, "no salt in %v", description)
	}

	response := md5Base64(origin.User + salt + origin.Password)

	var query string
	if opaque := q.Get("opaque"); opaque != "" {
		query = "opaque=" + url.QueryEscape(opaque) + "&"
		response += opaque
	} else if challenge := q.Get("challenge"); challenge != "" {
		response += challenge
	}

	response = md5Base64(response + cchallenge)
	query += "challenge=" + cchallenge + "&response=" + url.QueryEscape(response)

	return req.WithQuery(query), nil
}

func md5Base64(s string) string {
	b := md5.Sum([]byte(s))
	return base64.StdEncoding.EncodeToString(b[:])
}
