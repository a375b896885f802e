package ui

import (
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/me/docvault/pkg/model"
)

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"formatTime": func(t model.Timestamp) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"joinTags": func(d model.DocumentSummary) string {
		return strings.Join(d.TagNames(), ", ")
	},
	"latestVersion": func(d model.DocumentSummary) int {
		latest := 0
		for _, v := range d.Versions {
			latest = max(latest, v.VersionNumber)
		}
		return latest
	},
	"year": func() int {
		return time.Now().Year()
	},
}

// renderTemplate renders a named page inside the layout.
func renderTemplate(w io.Writer, name string, data map[string]any) error {
	content, ok := templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}

	layout, ok := templates["layout"]
	if !ok {
		return fmt.Errorf("layout template not found")
	}

	tmpl, err := template.New("layout").Funcs(templateFuncs).Parse(layout)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}

	if _, err = tmpl.New("content").Parse(content); err != nil {
		return fmt.Errorf("parse content: %w", err)
	}

	for compName, compContent := range templates {
		if strings.HasPrefix(compName, "components/") {
			if _, err = tmpl.New(filepath.Base(compName)).Parse(compContent); err != nil {
				return fmt.Errorf("parse component %s: %w", compName, err)
			}
		}
	}

	return tmpl.Execute(w, data)
}

var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-50 min-h-screen">
    <nav class="bg-white shadow-sm border-b">
        <div class="max-w-5xl mx-auto px-4 flex justify-between h-14">
            <div class="flex items-center space-x-6">
                <span class="text-xl font-bold text-indigo-600">docvault</span>
                {{range .Nav}}
                {{if eq .Path "/logout"}}
                <form action="/logout" method="POST" class="inline">
                    <button type="submit" class="text-sm font-medium text-gray-500 hover:text-gray-700">{{.Label}}</button>
                </form>
                {{else}}
                <a href="{{.Path}}" class="text-sm font-medium text-gray-500 hover:text-gray-700">{{.Label}}</a>
                {{end}}
                {{end}}
            </div>
            {{if .Subject}}
            <div class="flex items-center text-sm text-gray-500">{{.Subject}}</div>
            {{end}}
        </div>
    </nav>

    <main class="max-w-5xl mx-auto py-6 px-4">
        {{template "flash" .}}
        {{template "content" .}}
    </main>
    <footer class="max-w-5xl mx-auto px-4 py-4 text-xs text-gray-400">&copy; {{year}} docvault</footer>
</body>
</html>`,

	"components/flash": `{{define "flash"}}
{{if .Error}}
<div class="rounded-md bg-red-50 p-4 mb-4"><div class="text-sm text-red-700" role="alert">{{.Error}}</div></div>
{{end}}
{{if .Notice}}
<div class="rounded-md bg-green-50 p-4 mb-4"><div class="text-sm text-green-700" role="status">{{.Notice}}</div></div>
{{end}}
{{end}}`,

	"login": `{{define "content"}}
<div class="max-w-md mx-auto">
    <h2 class="text-2xl font-bold text-gray-900 mb-6">Login</h2>
    <form class="space-y-4" action="/login" method="POST">
        <input id="email" name="email" type="email" placeholder="Email" required
               class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
        <input id="password" name="password" type="password" placeholder="Password" required
               class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
        <button type="submit" class="w-full py-2 px-4 rounded-md text-white bg-indigo-600 hover:bg-indigo-700">Login</button>
    </form>
    <p class="mt-4 text-sm text-gray-600">No account? <a href="/register" class="text-indigo-600">Sign up</a></p>
</div>
{{end}}`,

	"register": `{{define "content"}}
<div class="max-w-md mx-auto">
    <h2 class="text-2xl font-bold text-gray-900 mb-6">Sign Up</h2>
    <form class="space-y-4" action="/register" method="POST">
        <input name="name" type="text" placeholder="Name" required
               class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
        <input name="email" type="email" placeholder="Email" required
               class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
        <input name="password" type="password" placeholder="Password" required
               class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
        <select name="department_id" required class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
            <option value="">Select department</option>
            {{range .Departments}}
            <option value="{{.ID}}">{{.Name}}</option>
            {{end}}
        </select>
        <button type="submit" class="w-full py-2 px-4 rounded-md text-white bg-indigo-600 hover:bg-indigo-700">Sign Up</button>
    </form>
    <p class="mt-4 text-sm text-gray-600">Already registered? <a href="/login" class="text-indigo-600">Login</a></p>
</div>
{{end}}`,

	"search": `{{define "content"}}
<h2 class="text-2xl font-bold text-gray-900 mb-6">Search Documents</h2>
<form class="flex space-x-2 mb-6" action="/search" method="GET">
    <input name="q" type="text" value="{{.Query}}" placeholder="Title contains"
           class="flex-1 px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
    <input name="tag" type="text" value="{{.Tag}}" placeholder="Tag"
           class="w-48 px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
    <button type="submit" class="py-2 px-4 rounded-md text-white bg-indigo-600 hover:bg-indigo-700">Search</button>
</form>
{{if .Searched}}
{{if .Results}}
<table class="min-w-full divide-y divide-gray-200 bg-white shadow rounded-md">
    <thead class="bg-gray-50">
        <tr>
            <th class="px-4 py-2 text-left text-xs font-medium text-gray-500 uppercase">Title</th>
            <th class="px-4 py-2 text-left text-xs font-medium text-gray-500 uppercase">Tags</th>
            <th class="px-4 py-2 text-left text-xs font-medium text-gray-500 uppercase">Latest</th>
            <th class="px-4 py-2"></th>
        </tr>
    </thead>
    <tbody class="divide-y divide-gray-200">
        {{range .Results}}
        <tr>
            <td class="px-4 py-2 text-sm"><a href="/documents/{{.ID}}" class="text-indigo-600">{{.Title}}</a></td>
            <td class="px-4 py-2 text-sm text-gray-500">{{joinTags .}}</td>
            <td class="px-4 py-2 text-sm text-gray-500">v{{latestVersion .}}</td>
            <td class="px-4 py-2 text-sm"><a href="/documents/{{.ID}}/download" class="text-indigo-600">Download</a></td>
        </tr>
        {{end}}
    </tbody>
</table>
{{else}}
<p class="text-sm text-gray-500">No documents found.</p>
{{end}}
{{end}}
{{end}}`,

	"upload": `{{define "content"}}
<div class="max-w-md">
    <h2 class="text-2xl font-bold text-gray-900 mb-6">Upload Document</h2>
    <form class="space-y-4" action="/upload" method="POST" enctype="multipart/form-data">
        <input name="title" type="text" placeholder="Title" required
               class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
        <input name="tags" type="text" placeholder="Tags (comma separated)" required
               class="block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
        <input name="file" type="file" required class="block w-full text-sm">
        <button type="submit" class="w-full py-2 px-4 rounded-md text-white bg-indigo-600 hover:bg-indigo-700">Upload</button>
    </form>
</div>
{{end}}`,

	"document": `{{define "content"}}
<div class="flex justify-between items-center mb-6">
    <h2 class="text-2xl font-bold text-gray-900">Document {{.DocumentID}}</h2>
    <a href="/documents/{{.DocumentID}}/download" class="py-2 px-4 rounded-md text-white bg-indigo-600 hover:bg-indigo-700 text-sm">Download latest</a>
</div>
<table class="min-w-full divide-y divide-gray-200 bg-white shadow rounded-md">
    <thead class="bg-gray-50">
        <tr>
            <th class="px-4 py-2 text-left text-xs font-medium text-gray-500 uppercase">Version</th>
            <th class="px-4 py-2 text-left text-xs font-medium text-gray-500 uppercase">Uploaded</th>
            <th class="px-4 py-2 text-left text-xs font-medium text-gray-500 uppercase">By</th>
        </tr>
    </thead>
    <tbody class="divide-y divide-gray-200">
        {{range $i, $v := .Versions}}
        <tr>
            <td class="px-4 py-2 text-sm">v{{$v.VersionNumber}}{{if eq $i 0}} <span class="text-xs text-green-700">latest</span>{{end}}</td>
            <td class="px-4 py-2 text-sm text-gray-500">{{formatTime $v.CreatedAt}}</td>
            <td class="px-4 py-2 text-sm text-gray-500">{{$v.UploaderName}}</td>
        </tr>
        {{else}}
        <tr><td colspan="3" class="px-4 py-2 text-sm text-gray-500">No versions.</td></tr>
        {{end}}
    </tbody>
</table>
{{end}}`,

	"error": `{{define "content"}}
<div class="text-center py-12">
    <h2 class="text-2xl font-bold text-gray-900">{{.Message}}</h2>
    <a href="/" class="mt-4 inline-block text-indigo-600">Back</a>
</div>
{{end}}`,
}
