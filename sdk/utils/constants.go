// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

const (
	IniName            = ".mirror-publish.ini"
	IniSource          = "ini_source"
	CurrentEnvironment = "current_environment"
	UpdatedEnvKey      = "updated_environment"

	TargetRootURL          = "target_root_url"
	TargetUser             = "target_user"
	TargetPassword         = "target_password"
	TargetPublisherThreads = "target_publisher_threads"
	MirrorPath             = "mirror_path"
	LogLevel               = "log_level"

	AwsAccessKeyID     = "aws_access_key_id"
	AwsSecretAccessKey = "aws_secret_access_key"
	AwsSessionToken    = "aws_session_token"
	AwsRegion          = "aws_region"
	AwsEndpointURL     = "aws_endpoint_url"

	AppName = "mirror-publish"
)
