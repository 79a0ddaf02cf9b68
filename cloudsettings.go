// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package scantools

// This file contains the cloud account specific settings; change
// this if you want to use the S3 functionality on your own site.

const defaultAwsRegion = `eu-west-2`

// prefix of temporary working directories for S3 locations
const tempPrefix = "scantools"
