//
// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sql

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
)

const (
	defaultPort    = "15002"
	localMaster    = "local"
	remoteEnvVar   = "SPARK_REMOTE"
	connectScheme  = "sc://"
	userIdParam    = "user_id"
	userAgentParam = "user_agent"
)

var localMasterPattern = regexp.MustCompile(`^local(\[(\d+|\*)\])?$`)

// remote is a parsed connection string.
type remote struct {
	raw     string
	local   bool
	address string
	params  map[string]string
}

// parseRemote accepts "local", "local[N]", "local[*]", "sc://host[:port][/;key=value...]"
// and "host:port". An empty string falls back to $SPARK_REMOTE and then to local.
func parseRemote(connectionString string) (remote, error) {
	if connectionString == "" {
		connectionString = os.Getenv(remoteEnvVar)
	}
	if connectionString == "" {
		connectionString = localMaster
	}
	r := remote{raw: connectionString, params: map[string]string{}}

	if localMasterPattern.MatchString(connectionString) {
		r.local = true
		return r, nil
	}

	rest, isConnect := strings.CutPrefix(connectionString, connectScheme)
	if !isConnect {
		if _, _, err := net.SplitHostPort(rest); err != nil {
			return remote{}, fmt.Errorf("invalid remote %q: %w", connectionString, err)
		}
		r.address = rest
		return r, nil
	}

	hostPort, paramString, _ := strings.Cut(rest, "/")
	if hostPort == "" {
		return remote{}, fmt.Errorf("invalid remote %q: missing host", connectionString)
	}
	if _, _, err := net.SplitHostPort(hostPort); err != nil {
		host := strings.TrimSuffix(strings.TrimPrefix(hostPort, "["), "]")
		hostPort = net.JoinHostPort(host, defaultPort)
	}
	r.address = hostPort
	for _, param := range strings.Split(paramString, ";") {
		if param == "" {
			continue
		}
		key, value, ok := strings.Cut(param, "=")
		if !ok {
			return remote{}, fmt.Errorf("invalid remote %q: parameter %q is not key=value", connectionString, param)
		}
		r.params[key] = value
	}
	return r, nil
}
