// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

// PresentError formats err for the terminal with credentials masked, prefixed
// by "❌ " and the optional context.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return "❌ " + Mask(err.Error())
	}
	return "❌ " + context + ": " + Mask(err.Error())
}
