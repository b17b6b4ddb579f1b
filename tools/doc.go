// Package tools defines tool contracts and the assistant's built-in tools.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - Define[T] / DefineNoInput: static registration; arguments are validated
//     against T's schema and decoded before the handler runs.
//   - Registry: unique names, lookup, resolved descriptors built once.
//   - Tools: generate_invoice, lookup_contacts, web_search, list_invoices,
//     read_invoice, current_date.
package tools
