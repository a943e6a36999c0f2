package lang

// builtinSet turns a literal slice into the map shape Analyser.BuiltinExclusions
// returns, matching the "filter first" step of the call resolver (Phase 4):
// anything in this set never reaches tier resolution.
func builtinSet(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

var goBuiltins = builtinSet(
	"len", "cap", "make", "new", "append", "copy", "delete", "panic", "recover",
	"print", "println", "close", "complex", "real", "imag", "min", "max", "clear",
	"Println", "Printf", "Print", "Sprintf", "Sprint", "Errorf",
	"Error", "String", "Lock", "Unlock", "RLock", "RUnlock", "Wait", "Done", "Add",
)

var pythonBuiltins = builtinSet(
	"print", "len", "range", "str", "int", "float", "bool", "list", "dict", "set",
	"tuple", "open", "isinstance", "issubclass", "super", "type", "repr", "format",
	"enumerate", "zip", "map", "filter", "sorted", "reversed", "sum", "min", "max",
	"abs", "round", "hasattr", "getattr", "setattr", "iter", "next", "__init__",
	"__str__", "__repr__", "__len__", "__eq__",
)

var jsBuiltins = builtinSet(
	"console.log", "log", "warn", "error", "info", "debug",
	"JSON.stringify", "JSON.parse", "stringify", "parse",
	"setTimeout", "setInterval", "clearTimeout", "clearInterval",
	"Promise.resolve", "Promise.reject", "Promise.all", "then", "catch", "finally",
	"Object.keys", "Object.values", "Object.entries", "Object.assign",
	"Array.from", "Array.isArray", "push", "pop", "shift", "unshift",
	"slice", "splice", "map", "filter", "reduce", "forEach", "includes", "find",
)

var javaBuiltins = builtinSet(
	"println", "print", "printf", "format", "toString", "equals", "hashCode",
	"valueOf", "parseInt", "parseDouble", "getClass", "getName", "length",
	"size", "add", "get", "put", "remove", "contains", "isEmpty",
)

var csharpBuiltins = builtinSet(
	"WriteLine", "Write", "ToString", "Equals", "GetHashCode", "GetType",
	"Parse", "TryParse", "Format", "Join", "Split", "Contains", "StartsWith",
	"EndsWith", "Substring", "Replace", "Trim", "Select", "Where", "ToList",
	"FirstOrDefault", "Any", "Count", "OrderBy",
)

var rustBuiltins = builtinSet(
	"println", "print", "format", "vec", "panic", "unwrap", "expect",
	"clone", "to_string", "to_owned", "into", "from", "iter", "map", "filter",
	"collect", "len", "push", "pop", "unwrap_or", "unwrap_or_else",
)

var cBuiltins = builtinSet(
	"printf", "fprintf", "sprintf", "scanf", "malloc", "calloc", "realloc", "free",
	"memcpy", "memset", "memmove", "strlen", "strcpy", "strncpy", "strcmp",
	"strncmp", "strcat", "fopen", "fclose", "fread", "fwrite", "exit", "abort",
)

var cppBuiltins = builtinSet(
	"printf", "malloc", "free", "cout", "endl", "push_back", "emplace_back",
	"size", "begin", "end", "make_shared", "make_unique", "move", "forward",
	"to_string", "find", "insert", "erase",
)

var vbnetBuiltins = builtinSet(
	"Console.WriteLine", "WriteLine", "Console.Write", "Write", "ToString",
	"Equals", "GetHashCode", "GetType", "CStr", "CInt", "CBool", "CDbl",
	"IsNothing", "IsDBNull", "MsgBox",
)
