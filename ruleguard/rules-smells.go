package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// 1) Dos "guard if" seguidos con el mismo return => combinables con ||
	//    Ej:
	//      if a { return err }
	//      if b { return err }
	//    => if a || b { return err }
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	// Variante típica con continue (dentro de loops)
	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// 2) For anidados: no siempre es "malo", pero es un smell útil para refactor/extract
	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

func progressPlumbing(m dsl.Matcher) {
	// Errores de marshal ignorados antes de escribir al cliente: el payload
	// truncado llega igual al websocket
	m.Match(`$data, _ := json.Marshal($v); $w.Write($data)`).
		Report(`json.Marshal error ignored before writing to the client`)

	// Polling con sleep fijo dentro de un loop: preferir un canal o un ticker
	// cancelable con el contexto de la tarea
	m.Match(`for $*_ { $*_; time.Sleep($d) }`).
		Report(`fixed-sleep polling loop; prefer a channel or context-aware ticker`)
}

func resourceHygiene(m dsl.Matcher) {
	// Archivos abiertos sin defer Close inmediato
	m.Match(`$f, $err := os.Open($path); if $err != nil { $*_ }; $next`).
		Where(!m["next"].Text.Matches(`defer .*Close`)).
		Report(`os.Open not followed by a deferred Close`)

	// context.Background dentro de handlers: el contexto del request ya existe
	m.Match(`context.Background()`).
		Where(m.File().Name.Matches(`.*handlers.*`)).
		Report(`handler creating a root context; use the request context instead`)
}
