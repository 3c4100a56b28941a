// Copyright (c) 2026 Ammar Ahmad
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package prompt

import "strings"

// formatMarker is the phrase that signals an instruction already defines its
// own output contract. The default schema block below carries it too, so a
// combined prompt never gains a second block.
const formatMarker = "JSON format"

// defaultSchemaBlock is appended when no resolved instruction defines an
// output contract, so the model always receives one.
const defaultSchemaBlock = `Respond in the following JSON format:
{
  "events": [{"title": "", "date": "", "time": "", "location": "", "description": ""}],
  "actions": [{"type": "", "description": "", "deadline": "", "priority": ""}],
  "summary": "",
  "categories": "",
  "importance": ""
}`

// Combine concatenates the instruction texts in resolution order with
// blank-line separation, appends the email content, and appends the default
// schema block unless an instruction already mentions a JSON output format.
func Combine(instructions []string, emailContent string) string {
	var b strings.Builder

	hasFormat := false
	for _, instr := range instructions {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(instr)
		if strings.Contains(instr, formatMarker) {
			hasFormat = true
		}
	}

	b.WriteString("\n\nEmail content:\n")
	b.WriteString(emailContent)

	if !hasFormat {
		b.WriteString("\n\n")
		b.WriteString(defaultSchemaBlock)
	}

	return b.String()
}
