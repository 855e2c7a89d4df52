package talc

// builtin describes a library function. A nil params slice with
// variadic set accepts any number of arguments.
type builtin struct {
	name     string
	params   []string
	types    []*Type
	ret      *Type
	ctor     bool
	variadic bool
}

func fn(name string, ret *Type, params ...interface{}) builtin {
	b := builtin{name: name, ret: ret}
	for i := 0; i < len(params); i += 2 {
		b.params = append(b.params, params[i].(string))
		b.types = append(b.types, params[i+1].(*Type))
	}
	return b
}

func ctor(name string, ret *Type, params ...interface{}) builtin {
	b := fn(name, ret, params...)
	b.ctor = true
	return b
}

func variadic(name string, ret *Type) builtin {
	return builtin{name: name, ret: ret, variadic: true}
}

func (r *Registry) addFunctions(scope *Scope, class *Type, funcs []builtin) {
	for _, b := range funcs {
		f := &FunctionDefinition{
			Name:        b.name,
			ParamNames:  b.params,
			ParamTypes:  b.types,
			ReturnType:  b.ret,
			Constructor: b.ctor,
			Variadic:    b.variadic,
			Builtin:     true,
			Class:       class,
		}
		f.Scope = scope
		r.decls.addFunc(f)
		scope.DefineFunction(b.name, f.ID)
	}
}

func (r *Registry) addConstant(name string, t *Type) {
	v := &VariableDefinition{Name: name, Type: t, Final: true, Builtin: true}
	v.Scope = r.scope
	r.decls.addVar(v)
	r.scope.DefineVariable(name, v.ID)
}

func (r *Registry) addClass(t *Type, funcs ...builtin) {
	r.addFunctions(t.members, t, funcs)
	r.byName[t.Name()] = t
}

// NewRegistry builds the built-in types with their member functions, and
// the scope of global built-in functions and constants.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]*Type),
		decls:  newDecls(),
	}

	r.Object = newSimpleType(nil, "object")
	r.Bool = newSimpleType(r.Object, "bool")
	r.File = newSimpleType(r.Object, "file")
	r.Int = newSimpleType(r.Object, "int")
	r.Match = newSimpleType(r.Object, "match")
	r.Real = newSimpleType(r.Object, "real")
	r.String = newSimpleType(r.Object, "string")
	r.Void = newSimpleType(nil, "void")

	r.K = newTypeVariable("K")
	r.V = newTypeVariable("V")
	r.T = newTypeVariable("T")

	r.List = newTemplate(r.Object, "list", r.T, nil)
	r.Map = newTemplate(r.Object, "map", r.K, r.V)

	r.ListOfObject = r.Instantiate(r.List, r.Object, nil)
	r.ListOfString = r.Instantiate(r.List, r.String, nil)

	r.Null = newSimpleType(nil, "null-type")
	r.EmptyList = newSimpleType(nil, "empty-list")

	r.addClass(r.Object,
		fn("to_s", r.String),
	)
	r.addClass(r.Bool)
	r.addClass(r.File,
		fn("append", r.Void, "content", r.String),
		fn("exists", r.Bool),
		ctor("file", r.File, "filename", r.String),
		fn("is_directory", r.Bool),
		fn("is_executable", r.Bool),
		fn("mkdir", r.Bool),
		fn("mkdir_p", r.Bool),
		fn("read", r.String),
		fn("read_lines", r.ListOfString),
		fn("realpath", r.File),
		fn("write", r.Void, "content", r.String),
	)
	r.addClass(r.Int,
		fn("abs", r.Int),
		fn("signum", r.Int),
		fn("to_base", r.String, "base", r.Int),
		fn("to_char", r.String),
		fn("to_i", r.Int),
		fn("to_r", r.Real),
	)
	r.addClass(r.List,
		fn("add_all", r.List, "others", r.List),
		fn("clear", r.List),
		fn("contains", r.Bool, "value", r.T),
		fn("__get_item__", r.T, "index", r.Int),
		fn("is_empty", r.Bool),
		fn("join", r.String, "separator", r.String),
		fn("length", r.Int),
		ctor("list", r.List),
		fn("peek_back", r.T),
		fn("peek_front", r.T),
		fn("pop_back", r.T),
		fn("pop_front", r.T),
		fn("push_back", r.List, "value", r.T),
		fn("push_front", r.List, "value", r.T),
		fn("__set_item__", r.T, "index", r.Int, "value", r.T),
		fn("remove_all", r.List, "others", r.List),
		fn("remove_at", r.List, "index", r.Int),
		fn("remove_first", r.Bool, "value", r.T),
		fn("reverse", r.List),
		fn("sort", r.List),
		fn("to_s", r.String),
		fn("uniq", r.List),
	)
	r.ListOfK = r.List.withKey(r.K)
	r.ListOfV = r.List.withKey(r.V)
	r.addClass(r.Map,
		fn("clear", r.Map),
		fn("__get_item__", r.V, "key", r.K),
		fn("has_key", r.Bool, "key", r.K),
		fn("has_value", r.Bool, "value", r.V),
		fn("keys", r.ListOfK),
		fn("length", r.Int),
		ctor("map", r.Map),
		fn("__set_item__", r.V, "key", r.K, "value", r.V),
		fn("remove", r.Map, "key", r.K),
		fn("values", r.ListOfV),
	)
	r.addClass(r.Match,
		fn("group", r.String, "n", r.Int),
	)
	r.addClass(r.Real,
		fn("abs", r.Real),
		fn("log", r.Real, "base", r.Real),
		fn("log10", r.Real),
		fn("logE", r.Real),
		fn("signum", r.Real),
		fn("sqrt", r.Real),
		fn("to_i", r.Int),
		fn("to_r", r.Real),
	)
	r.addClass(r.String,
		fn("contains", r.Bool, "substring", r.String),
		fn("ends_with", r.Bool, "suffix", r.String),
		fn("escape_html", r.String),
		fn("__get_item__", r.String, "index", r.Int),
		fn("gsub", r.String, "pattern", r.String, "replacement", r.String),
		fn("lc", r.String),
		fn("lc_first", r.String),
		fn("length", r.Int),
		fn("match", r.Match, "pattern", r.String),
		fn("replace", r.String, "old", r.String, "new", r.String),
		fn("split", r.ListOfString, "pattern", r.String),
		fn("starts_with", r.Bool, "prefix", r.String),
		fn("sub", r.String, "pattern", r.String, "replacement", r.String),
		fn("to_i", r.Int),
		fn("to_r", r.Real),
		fn("trim", r.String),
		fn("uc", r.String),
		fn("uc_first", r.String),
	)

	r.scope = NewScope(nil, ScopeBuiltin)
	r.addFunctions(r.scope, nil, []builtin{
		fn("backquote", r.String, "command", r.String),
		fn("exit", r.Void, "status", r.Int),
		fn("getenv", r.String, "name", r.String),
		fn("gets", r.String),
		variadic("print", r.Void),
		variadic("puts", r.Void),
		fn("shell", r.Int, "command", r.String),
		fn("system", r.Int, "command", r.ListOfString),
		fn("time_ms", r.Int),
	})
	r.addConstant("ARGV0", r.String)
	r.addConstant("ARGS", r.ListOfString)
	r.addConstant("FILE_SEPARATOR", r.String)
	r.addConstant("PATH_SEPARATOR", r.String)

	return r
}
