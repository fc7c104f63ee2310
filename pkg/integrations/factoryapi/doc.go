// Package factoryapi is the REST client of the factory backend.
//
// # Overview
//
// One [Client] speaks to the backend and exposes an adapter per remote
// store the synchronizer needs:
//
//   - [Client.Documents]: the canvas document (/react-flow)
//   - [Client.Truth]: the entity store's current view of a factory
//     (/react-flow/react-flow-update)
//   - [Client.Allocations]: allocated assets (/allocated-asset)
//   - [Client.Relations]: asset relations (/asset/update-relation)
//   - [Client.ShopFloors]: shop floor edge mirror (/shop-floor/update-react)
//
// # Usage
//
//	api, err := factoryapi.New(cfg.API.URL, factoryapi.Options{Token: cfg.API.Token})
//	if err != nil {
//	    return err
//	}
//	sync := persist.New(api.Stores(), gv, logger)
//
// # Errors
//
// Missing resources surface as [integrations.ErrNotFound], except for
// document fetches which report found=false. Transport failures and
// unexpected statuses carry an errors.Code (NOT_FOUND, CONFLICT, NETWORK_ERROR,
// TIMEOUT, UNAUTHORIZED) usable with errors.GetCode.
package factoryapi
